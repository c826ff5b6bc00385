// Package validator decides whether a fetched packet's signature is
// acceptable. The ECDSA validator resolves the packet's key locator to a
// certificate with one nested fetch, extracts the signer's public key, and
// checks the signature over the covered byte ranges. Every check fails
// closed into a boolean verdict; causes surface only on the debug log.
package validator

import (
	"context"
	"time"

	"go-ndnfetch/certificate"
	"go-ndnfetch/crypto"
	"go-ndnfetch/fetch"

	"github.com/apex/log"
	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
	"github.com/zjkmxy/go-ndn/pkg/ndn"
	"golang.org/x/exp/slices"
)

// DefaultCertLifetime bounds the nested certificate fetch.
const DefaultCertLifetime = 4 * time.Second

var supportedSigTypes = []ndn.SigType{ndn.SignatureSha256WithEcdsa}

// CertFetcher retrieves the raw certificate packet named by a key locator.
// The exact locator is a prefix of the published certificate name, so the
// request allows prefix matches and requires a fresh result.
type CertFetcher struct {
	client   *fetch.Client
	lifetime time.Duration
}

func NewCertFetcher(client *fetch.Client, lifetime time.Duration) *CertFetcher {
	if lifetime <= 0 {
		lifetime = DefaultCertLifetime
	}
	return &CertFetcher{client: client, lifetime: lifetime}
}

// Fetch issues the certificate sub-request and returns the raw packet
// bytes. Failures propagate unchanged from the client; no retries.
func (fetcher *CertFetcher) Fetch(ctx context.Context, keyLocatorName enc.Name) ([]byte, error) {
	response, fetchError := fetcher.client.Fetch(ctx, keyLocatorName, fetch.Params{
		MustBeFresh: true,
		CanBePrefix: true,
		Lifetime:    fetcher.lifetime,
	}, nil)
	if fetchError != nil {
		return nil, fetchError
	}
	return response.Raw.Join(), nil
}

// EcdsaValidator verifies SHA256-with-ECDSA signatures against the signer's
// published certificate.
type EcdsaValidator struct {
	fetcher *CertFetcher
	timer   ndn.Timer
	log     *log.Entry
}

// NewEcdsaValidator creates a validator fetching certificates through
// client. certLifetime bounds the nested fetch; zero means
// DefaultCertLifetime.
func NewEcdsaValidator(client *fetch.Client, certLifetime time.Duration) *EcdsaValidator {
	return &EcdsaValidator{
		fetcher: NewCertFetcher(client, certLifetime),
		timer:   client.Timer(),
		log:     log.WithField("module", "validator"),
	}
}

// Verify runs the checks in order and short-circuits to false on the first
// failure. Exactly one nested fetch is performed, and only after the local
// signature metadata checks pass.
func (validator *EcdsaValidator) Verify(ctx context.Context, name enc.Name,
	sigCovered enc.Wire, signature ndn.Signature) bool {
	logger := validator.log.WithField("name", name.String())

	if signature == nil || !slices.Contains(supportedSigTypes, signature.SigType()) {
		logger.Debug("Rejected: unsupported signature type.")
		return false
	}

	coveredLen := 0
	for _, buf := range sigCovered {
		coveredLen += len(buf)
	}
	if coveredLen == 0 {
		logger.Debug("Rejected: empty signature-covered part.")
		return false
	}
	sigValue := signature.SigValue()
	if len(sigValue) == 0 {
		logger.Debug("Rejected: empty signature value.")
		return false
	}

	keyLocatorName := signature.KeyName()
	if len(keyLocatorName) == 0 {
		logger.Debug("Rejected: no key locator.")
		return false
	}

	rawCert, fetchError := validator.fetcher.Fetch(ctx, keyLocatorName)
	if fetchError != nil {
		logger.Debugf("Rejected: certificate fetch failed: %v", fetchError)
		return false
	}

	cert, decodeError := certificate.Decode(rawCert)
	if decodeError != nil {
		logger.Debugf("Rejected: %v", decodeError)
		return false
	}
	if !cert.ValidAt(validator.timer.Now()) {
		logger.Debug("Rejected: certificate outside its validity window.")
		return false
	}

	publicKey, keyError := cert.PublicKey()
	if keyError != nil {
		logger.Debugf("Rejected: %v", keyError)
		return false
	}

	if !crypto.EcdsaValidate(sigCovered, sigValue, publicKey) {
		logger.Debug("Rejected: signature does not verify.")
		return false
	}
	return true
}

// PassAllValidator accepts every packet without inspection.
type PassAllValidator struct{}

func (PassAllValidator) Verify(context.Context, enc.Name, enc.Wire, ndn.Signature) bool {
	return true
}
