package config

import (
	"fmt"
	"strconv"
	"time"
)

// ApplyEnv overrides fields from V2V_* variables. lookup is usually
// os.LookupEnv; the server calls godotenv first so .env values land here too.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("V2V_FONT_PATH", &c.Render.FontPath)
	str("V2V_ADDR", &c.Server.Addr)
	str("V2V_UPLOAD_DIR", &c.Server.UploadDir)
	str("V2V_VIDEO_DIR", &c.Server.VideoDir)
	str("V2V_PUBLISH_BACKEND", &c.Publish.Backend)
	str("V2V_PUBLISH_BUCKET", &c.Publish.Bucket)
	str("V2V_PUBLISH_PREFIX", &c.Publish.Prefix)
	str("V2V_AWS_REGION", &c.Publish.Region)
	str("V2V_S3_ENDPOINT", &c.Publish.Endpoint)
	str("V2V_NATS_URL", &c.Publish.NATSURL)

	for key, dst := range map[string]*int{
		"V2V_FPS":        &c.Timing.FPS,
		"V2V_WORD_DELAY": &c.Timing.WordDelay,
		"V2V_WORKERS":    &c.Workers,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup("V2V_JOB_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("V2V_JOB_TIMEOUT: %w", err)
		}
		c.Server.JobTimeout = d
	}
	return nil
}
