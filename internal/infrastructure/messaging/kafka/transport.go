package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/turtacn/Massing-Sim/pkg/errors"
)

// SecurityConfig carries broker authentication shared by producers,
// consumers and the topic manager.
type SecurityConfig struct {
	SASLMechanism string
	SASLUsername  string
	SASLPassword  string
	TLSEnabled    bool
	TLSCAPath     string
}

func (s SecurityConfig) validate() error {
	if s.SASLMechanism != "" && (s.SASLUsername == "" || s.SASLPassword == "") {
		return errors.New(errors.ErrCodeValidation, "SASL credentials required")
	}
	return nil
}

func (s SecurityConfig) mechanism() (sasl.Mechanism, error) {
	switch s.SASLMechanism {
	case "":
		return nil, nil
	case "PLAIN":
		return plain.Mechanism{Username: s.SASLUsername, Password: s.SASLPassword}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, s.SASLUsername, s.SASLPassword)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, s.SASLUsername, s.SASLPassword)
	default:
		return nil, errors.New(errors.ErrCodeValidation, "unsupported SASL mechanism").WithDetail(s.SASLMechanism)
	}
}

// tlsConfig returns nil when TLS is off.  Without a CA file the system pool
// is used.
func (s SecurityConfig) tlsConfig() (*tls.Config, error) {
	if !s.TLSEnabled {
		return nil, nil
	}
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if s.TLSCAPath == "" {
		return cfg, nil
	}
	pem, err := os.ReadFile(s.TLSCAPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessagingError, "read kafka CA file")
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New(errors.ErrCodeMessagingError, "kafka CA file has no certificates").
			WithDetail(fmt.Sprintf("path=%s", s.TLSCAPath))
	}
	cfg.RootCAs = pool
	return cfg, nil
}

//Personal.AI order the ending
