package credential

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
)

// FromPEM builds a certificate credential from a PEM-encoded X.509
// certificate. Only the descriptive fields and validity bounds are read;
// signingKey is carried through untouched.
func FromPEM(data []byte, signingKey string) (*Credential, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidCredential)
	}
	if block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrInvalidCredential, block.Type)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	return &Credential{
		Kind:         KindCertificate,
		Subject:      cert.Subject.String(),
		Issuer:       cert.Issuer.String(),
		SerialNumber: strings.ToUpper(cert.SerialNumber.Text(16)),
		ValidFrom:    cert.NotBefore.UTC(),
		ValidTo:      cert.NotAfter.UTC(),
		SigningKey:   signingKey,
	}, nil
}
