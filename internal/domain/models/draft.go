package models

// File is a file selected by the user and not uploaded yet
type File struct {
	Name      string
	MediaType string
	Data      []byte
}

// Preview is a locally rendered form of the selected image
type Preview struct {
	MediaType string
	DataURL   string
}

// Draft is the post being composed
type Draft struct {
	Message string
	File    *File
	Preview *Preview
}
