package metrics

type Config struct {
	Addr string `json:"addr"`
}
