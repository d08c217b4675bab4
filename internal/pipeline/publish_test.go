package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishConfig_Validate(t *testing.T) {
	dir := t.TempDir()
	base := PublishConfig{Dir: dir, Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s", Bucket: "merlcut"}
	require.NoError(t, base.Validate())

	cases := map[string]func(c *PublishConfig){
		"no dir":         func(c *PublishConfig) { c.Dir = "" },
		"missing dir":    func(c *PublishConfig) { c.Dir = filepath.Join(dir, "nope") },
		"endpoint path":  func(c *PublishConfig) { c.Endpoint = "https://s3.example.com/bucket" },
		"endpoint empty": func(c *PublishConfig) { c.Endpoint = "" },
		"no secret":      func(c *PublishConfig) { c.SecretKey = "" },
		"no bucket":      func(c *PublishConfig) { c.Bucket = "" },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mut(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestPublish_RequiresManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v1_0_pick_1.mp4"), []byte("clip"), 0o644))

	cfg := PublishConfig{Dir: dir, Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s", Bucket: "merlcut"}
	n, err := Publish(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest:")
	assert.Zero(t, n)
}
