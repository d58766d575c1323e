package kafka

const DefaultTopic = "posts.inserted"

type Config struct {
	Addrs   []string `json:"addrs"`
	Topic   string   `json:"topic"`
	Timeout int      `json:"timeout"`
	Retries int      `json:"retries"`
}
