// Package sealcli implements the sealbundle command: it encrypts the
// plaintext links and token files into the bundles the bot reads at startup.
package sealcli

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dmitrijs2005/serialgate/internal/cryptox"
	"github.com/dmitrijs2005/serialgate/internal/filex"
	"github.com/dmitrijs2005/serialgate/internal/flagx"
	"github.com/dmitrijs2005/serialgate/internal/server/bundle"
	"github.com/dmitrijs2005/serialgate/internal/server/config"
	"github.com/dmitrijs2005/serialgate/internal/server/models"
)

const (
	linksBundleName = "encrypted_links.json"
	tokenBundleName = "encrypted_token.json"
)

// Run parses args and seals the given files. The passphrase comes from the
// PASSPHRASE environment variable or, when unset, from the terminal.
func Run(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("sealbundle", flag.ContinueOnError)
	fs.SetOutput(w)
	linksIn := fs.String("links", "", "plaintext JSON array of serial records")
	tokenIn := fs.String("token", "", "plaintext JSON credentials object")
	outDir := fs.String("out", ".", "directory for the sealed bundles")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *linksIn == "" && *tokenIn == "" {
		fs.Usage()
		return fmt.Errorf("nothing to seal: pass -links and/or -token")
	}

	dir, err := filex.EnsureDir(*outDir)
	if err != nil {
		return err
	}

	pass := []byte(flagx.EnvOr(config.PassphraseEnv, ""))
	if len(pass) == 0 {
		p, err := GetPassphrase(w)
		if err != nil {
			return err
		}
		pass = p
	}
	defer cryptox.Wipe(pass)

	if *linksIn != "" {
		out := filepath.Join(dir, linksBundleName)
		if err := bundle.SealFile(*linksIn, out, pass, &[]models.SerialRecord{}); err != nil {
			return err
		}
		fmt.Fprintf(w, "sealed %s -> %s\n", *linksIn, out)
	}
	if *tokenIn != "" {
		out := filepath.Join(dir, tokenBundleName)
		if err := bundle.SealFile(*tokenIn, out, pass, &config.Credentials{}); err != nil {
			return err
		}
		fmt.Fprintf(w, "sealed %s -> %s\n", *tokenIn, out)
	}
	return nil
}
