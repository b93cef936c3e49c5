package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/crmarques/rossync/config"
	"github.com/crmarques/rossync/faults"
)

// BuildTLSConfig turns the tls block of a context into a client config.
// A nil block yields a nil config so the transport keeps Go defaults.
func BuildTLSConfig(tlsSettings *config.TLS, scope string) (*tls.Config, error) {
	if tlsSettings == nil {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: tlsSettings.InsecureSkipVerify,
	}

	pool, err := loadCAPool(tlsSettings.CACertFile, scope)
	if err != nil {
		return nil, err
	}
	tlsConfig.RootCAs = pool

	certificate, err := loadClientCertificate(tlsSettings.ClientCertFile, tlsSettings.ClientKeyFile, scope)
	if err != nil {
		return nil, err
	}
	if certificate != nil {
		tlsConfig.Certificates = []tls.Certificate{*certificate}
	}

	return tlsConfig, nil
}

func loadCAPool(caCertFile string, scope string) (*x509.CertPool, error) {
	path := strings.TrimSpace(caCertFile)
	if path == "" {
		return nil, nil
	}

	caBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, validationError(fmt.Sprintf("%s.tls.ca-cert-file could not be read", scope), err)
	}

	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(caBytes); !ok {
		return nil, validationError(fmt.Sprintf("%s.tls.ca-cert-file is not valid PEM", scope), nil)
	}
	return pool, nil
}

func loadClientCertificate(certFile string, keyFile string, scope string) (*tls.Certificate, error) {
	clientCertFile := strings.TrimSpace(certFile)
	clientKeyFile := strings.TrimSpace(keyFile)
	if (clientCertFile == "") != (clientKeyFile == "") {
		return nil, validationError(
			fmt.Sprintf("%s.tls requires both client-cert-file and client-key-file", scope),
			nil,
		)
	}
	if clientCertFile == "" {
		return nil, nil
	}

	certificate, err := tls.LoadX509KeyPair(clientCertFile, clientKeyFile)
	if err != nil {
		return nil, validationError(fmt.Sprintf("%s.tls client certificate pair is invalid", scope), err)
	}
	return &certificate, nil
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}
