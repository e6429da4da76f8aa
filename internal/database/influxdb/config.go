package influxdb

// Config holds InfluxDB 3 connection configuration
type Config struct {
	URL         string
	Token       string
	Database    string
	Measurement string
}
