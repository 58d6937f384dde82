package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"membership-service/internal/util"
)

// Manager resolves server certificates: Let's Encrypt via autocert when
// enabled, configured cert/key files next, and an in-memory self-signed
// certificate as the development fallback.
type Manager struct {
	config     *Config
	autoCert   *autocert.Manager
	selfSigned *tls.Certificate
}

type Config struct {
	AutoCert    bool
	Domain      string
	CertFile    string
	KeyFile     string
	AutoCertDir string
	Email       string
}

func NewManager(config *Config) *Manager {
	m := &Manager{config: config}

	if config.AutoCert {
		if err := os.MkdirAll(config.AutoCertDir, 0700); err != nil {
			util.Warn("Could not create autocert directory", zap.Error(err))
		} else {
			m.autoCert = &autocert.Manager{
				Prompt:     autocert.AcceptTOS,
				HostPolicy: autocert.HostWhitelist(config.Domain),
				Cache:      autocert.DirCache(config.AutoCertDir),
				Email:      config.Email,
			}
			util.Info("AutoCert configured",
				zap.String("domain", config.Domain),
				zap.String("cache_dir", config.AutoCertDir))
		}
	}

	return m
}

func (m *Manager) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if m.autoCert != nil {
		if cert, err := m.autoCert.GetCertificate(hello); err == nil {
			return cert, nil
		}
	}

	if m.config.CertFile != "" && m.config.KeyFile != "" {
		if cert, err := tls.LoadX509KeyPair(m.config.CertFile, m.config.KeyFile); err == nil {
			return &cert, nil
		}
	}

	return m.getSelfSigned()
}

func (m *Manager) getSelfSigned() (*tls.Certificate, error) {
	if m.selfSigned != nil {
		return m.selfSigned, nil
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: m.config.Domain},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{m.config.Domain, "localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	m.selfSigned = &tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}

	util.Info("Generated self-signed certificate", zap.String("domain", m.config.Domain))
	return m.selfSigned, nil
}

func (m *Manager) GetTLSConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: m.GetCertificate,
		NextProtos:     []string{"h2", "http/1.1"},
		MinVersion:     tls.VersionTLS12,
	}
}

func (m *Manager) GetAutocertManager() *autocert.Manager {
	return m.autoCert
}
