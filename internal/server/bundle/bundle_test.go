package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/serialgate/internal/common"
	"github.com/dmitrijs2005/serialgate/internal/cryptox"
	"github.com/dmitrijs2005/serialgate/internal/server/config"
	"github.com/dmitrijs2005/serialgate/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pass = []byte("s3cret")

func writeSealed(t *testing.T, dir, name string, plain []byte) string {
	t.Helper()
	sealed, err := cryptox.Seal(plain, pass)
	require.NoError(t, err)
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, sealed, 0o600))
	return p
}

func TestLoad_Success(t *testing.T) {
	dir := t.TempDir()
	links := writeSealed(t, dir, "links", []byte(`[
		{"serial_num": 42, "file_name": "a.zip", "link": "https://x/a"},
		{"serial_num": "43", "file_name": "b.zip", "link": "https://x/b"}
	]`))
	token := writeSealed(t, dir, "token", []byte(`{"bot_token":"123:abc","database_dsn":"postgres://db","youtube_api_key":"k"}`))

	b, err := Load(links, token, pass)
	require.NoError(t, err)

	assert.Equal(t, []models.SerialRecord{
		{SerialNum: 42, FileName: "a.zip", Link: "https://x/a"},
		{SerialNum: 43, FileName: "b.zip", Link: "https://x/b"},
	}, b.Records)
	assert.Equal(t, config.Credentials{BotToken: "123:abc", DatabaseDSN: "postgres://db", YouTubeAPIKey: "k"}, b.Credentials)
}

func TestLoad_WrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	links := writeSealed(t, dir, "links", []byte(`[]`))
	token := writeSealed(t, dir, "token", []byte(`{}`))

	_, err := Load(links, token, []byte("nope"))
	require.ErrorIs(t, err, common.ErrBundleDecrypt)
}

func TestLoad_EmptyPassphrase(t *testing.T) {
	_, err := Load("a", "b", nil)
	require.ErrorIs(t, err, common.ErrBundleDecrypt)
}

func TestLoad_BadJSON(t *testing.T) {
	dir := t.TempDir()
	links := writeSealed(t, dir, "links", []byte(`{"not":"an array"}`))
	token := writeSealed(t, dir, "token", []byte(`{}`))

	_, err := Load(links, token, pass)
	require.ErrorIs(t, err, common.ErrBundleFormat)
}

func TestLoad_MissingFile(t *testing.T) {
	dir := t.TempDir()
	links := writeSealed(t, dir, "links", []byte(`[]`))

	_, err := Load(links, filepath.Join(dir, "absent"), pass)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSealFile_ThenLoad(t *testing.T) {
	dir := t.TempDir()
	plainLinks := filepath.Join(dir, "links.json")
	plainToken := filepath.Join(dir, "token.json")
	require.NoError(t, os.WriteFile(plainLinks, []byte(`[{"serial_num":1,"file_name":"f","link":"l"}]`), 0o600))
	require.NoError(t, os.WriteFile(plainToken, []byte(`{"bot_token":"t"}`), 0o600))

	outLinks := filepath.Join(dir, "encrypted_links.json")
	outToken := filepath.Join(dir, "encrypted_token.json")
	require.NoError(t, SealFile(plainLinks, outLinks, pass, &[]models.SerialRecord{}))
	require.NoError(t, SealFile(plainToken, outToken, pass, &config.Credentials{}))

	b, err := Load(outLinks, outToken, pass)
	require.NoError(t, err)
	require.Len(t, b.Records, 1)
	assert.Equal(t, "t", b.Credentials.BotToken)
}

func TestSealFile_RefusesMalformed(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "links.json")
	require.NoError(t, os.WriteFile(in, []byte(`[{"serial_num":"abc"}]`), 0o600))

	err := SealFile(in, filepath.Join(dir, "out"), pass, &[]models.SerialRecord{})
	require.ErrorIs(t, err, common.ErrBundleFormat)
	_, statErr := os.Stat(filepath.Join(dir, "out"))
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}
