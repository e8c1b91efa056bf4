package postgres

import "processguard/internal/platform/config"

func configWithURL(url string) config.PostgresConfig {
	return config.PostgresConfig{URL: url}
}
