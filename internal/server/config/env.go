package config

import "github.com/dmitrijs2005/serialgate/internal/flagx"

// PassphraseEnv names the variable holding the bundle passphrase.
const PassphraseEnv = "PASSPHRASE"

func parseEnv(config *Config) {
	config.Passphrase = flagx.EnvOr(PassphraseEnv, config.Passphrase)
}
