// Package bundle loads the encrypted startup files: the serial dataset and
// the service credentials. Nothing here is retried; a bundle that cannot be
// read, decrypted or parsed stops the process.
package bundle

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/serialgate/internal/common"
	"github.com/dmitrijs2005/serialgate/internal/cryptox"
	"github.com/dmitrijs2005/serialgate/internal/server/config"
	"github.com/dmitrijs2005/serialgate/internal/server/models"
)

// Bundle is the decrypted content of both startup files.
type Bundle struct {
	Records     []models.SerialRecord
	Credentials config.Credentials
}

// Load decrypts the links and token files with passphrase.
func Load(linksPath, tokenPath string, passphrase []byte) (*Bundle, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("%w: empty passphrase", common.ErrBundleDecrypt)
	}

	b := &Bundle{}
	if err := openFile(linksPath, passphrase, &b.Records); err != nil {
		return nil, err
	}
	if err := openFile(tokenPath, passphrase, &b.Credentials); err != nil {
		return nil, err
	}
	return b, nil
}

func openFile(path string, passphrase []byte, v any) error {
	sealed, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	plain, err := cryptox.Open(sealed, passphrase)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrBundleDecrypt, path, err)
	}

	if err := json.Unmarshal(plain, v); err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrBundleFormat, path, err)
	}
	return nil
}

// SealFile encrypts the plaintext JSON file in into out. The plaintext is
// first decoded into v so a malformed bundle is refused before sealing.
func SealFile(in, out string, passphrase []byte, v any) error {
	plain, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", in, err)
	}
	if err := json.Unmarshal(plain, v); err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrBundleFormat, in, err)
	}

	sealed, err := cryptox.Seal(plain, passphrase)
	if err != nil {
		return fmt.Errorf("seal %s: %w", in, err)
	}

	if err := os.WriteFile(out, sealed, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	return nil
}
