package blob

const DefaultBucket = "posts"

type Config struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access-key"`
	SecretKey string `json:"secret-key"`
	UseSSL    bool   `json:"use-ssl"`
	Bucket    string `json:"bucket"`
	// PublicURL is base of links to stored objects. Endpoint is used if empty
	PublicURL string `json:"public-url,omitempty"`
}
