package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/flagx"
	"github.com/dmitrijs2005/gophstamp/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations use timex.Duration so
// both "30m" and integer nanoseconds are accepted. Pointer fields tell an
// explicit false or zero apart from an absent key.
type JsonConfig struct {
	EndpointAddrGRPC  string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP  string         `json:"endpoint_addr_http"`
	DatabaseDSN       string         `json:"database_dsn"`
	SecretKey         string         `json:"secret_key"`
	SessionTokenTTL   timex.Duration `json:"session_token_ttl"`
	TemporaryTokenTTL timex.Duration `json:"temporary_token_ttl"`
	OTPTTL            timex.Duration `json:"otp_ttl"`
	SigningKeyPath    string         `json:"signing_key_path"`
	CertificatePath   string         `json:"certificate_path"`

	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUser     string `json:"smtp_user"`
	SMTPPassword string `json:"smtp_password"`
	SMTPFrom     string `json:"smtp_from"`
	SMTPStartTLS *bool  `json:"smtp_starttls"`

	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`

	BootstrapFirstAdmin *bool  `json:"bootstrap_first_admin"`
	AuthRateLimit       string `json:"auth_rate_limit"`
	UploadRateLimit     string `json:"upload_rate_limit"`
	DeleteRateLimit     string `json:"delete_rate_limit"`
	GeneralRateLimit    string `json:"general_rate_limit"`
	MaxUploadBytes      int64  `json:"max_upload_bytes"`
	LogLevel            string `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by -c or
// -config into config. Keys missing from the file keep their current value.
// An unreadable or invalid file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.SessionTokenTTL, c.SessionTokenTTL)
	setDuration(&config.TemporaryTokenTTL, c.TemporaryTokenTTL)
	setDuration(&config.OTPTTL, c.OTPTTL)
	setString(&config.SigningKeyPath, c.SigningKeyPath)
	setString(&config.CertificatePath, c.CertificatePath)

	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != 0 {
		config.SMTPPort = c.SMTPPort
	}
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	if c.SMTPStartTLS != nil {
		config.SMTPStartTLS = *c.SMTPStartTLS
	}

	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.BootstrapFirstAdmin != nil {
		config.BootstrapFirstAdmin = *c.BootstrapFirstAdmin
	}
	setString(&config.AuthRateLimit, c.AuthRateLimit)
	setString(&config.UploadRateLimit, c.UploadRateLimit)
	setString(&config.DeleteRateLimit, c.DeleteRateLimit)
	setString(&config.GeneralRateLimit, c.GeneralRateLimit)
	if c.MaxUploadBytes != 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
