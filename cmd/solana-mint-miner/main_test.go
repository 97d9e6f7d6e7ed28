package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/screa/solana-mint-miner/internal/config"
	"github.com/screa/solana-mint-miner/internal/crypto"
	"github.com/screa/solana-mint-miner/pkg/backup"
	"github.com/screa/solana-mint-miner/pkg/types"
)

func writeBackup(t *testing.T, n int) string {
	t.Helper()
	w, err := backup.Create(t.TempDir(), "pump", time.Now())
	require.NoError(t, err)
	for _i := 0; _i < n; _i++ {
		kp, err := crypto.GenerateKeypair()
		require.NoError(t, err)
		require.NoError(t, w.Append(types.AddressRecord{
			PublicAddress: kp.Address(),
			PrivateKey:    kp.EncodePrivateKey(),
			SuffixType:    "pump",
		}))
	}
	require.NoError(t, w.Close())
	return w.Path()
}

func resetConfig(t *testing.T) {
	t.Helper()
	cfg = config.NewConfig()
	envFile = filepath.Join(t.TempDir(), "none.env")
	t.Setenv(config.EnvSupabaseURL, "")
	t.Setenv(config.EnvSupabaseKey, "")
	t.Setenv(config.EnvDatabaseURL, "")
}

func TestSubcommands(t *testing.T) {
	resetConfig(t)
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	require.Subset(t, names, []string{"pump", "bonk", "both", "verify", "upload"})
}

func TestVerifyCommand(t *testing.T) {
	resetConfig(t)
	path := writeBackup(t, 3)

	root := newRootCmd()
	root.SetArgs([]string{"verify", path, "--log-file", filepath.Join(t.TempDir(), "log.txt")})
	require.NoError(t, root.Execute())
}

func TestSearchRequiresCredentials(t *testing.T) {
	resetConfig(t)
	missing := envFile

	root := newRootCmd()
	root.SetArgs([]string{"pump", "--env-file", missing})
	err := root.Execute()
	require.ErrorIs(t, err, types.ErrConfiguration)
}

func TestUploadCommand(t *testing.T) {
	resetConfig(t)
	path := writeBackup(t, 5)

	var batches atomic.Int32
	var rows atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var recs []types.AddressRecord
		if err := json.NewDecoder(r.Body).Decode(&recs); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		batches.Add(1)
		rows.Add(int32(len(recs)))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	t.Setenv(config.EnvSupabaseURL, srv.URL)
	t.Setenv(config.EnvSupabaseKey, "anon")

	root := newRootCmd()
	root.SetArgs([]string{"upload", path, "--batch-size", "2", "--log-file", filepath.Join(t.TempDir(), "log.txt")})
	require.NoError(t, root.Execute())
	require.Equal(t, int32(3), batches.Load())
	require.Equal(t, int32(5), rows.Load())
}
