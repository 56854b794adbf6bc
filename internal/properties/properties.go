package properties

import (
	"os"
	"path/filepath"
)

// RootPath is the base folder holding data/ (masks, scenes, results, runs).
func RootPath() string {
	if root := os.Getenv("ROOT_PATH"); root != "" {
		return root
	}
	return "."
}

func DataPath(parts ...string) string {
	return filepath.Join(append([]string{RootPath(), "data"}, parts...)...)
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}

func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}

func DiscordWarnNotificationUrl() string {
	if url := os.Getenv("DISCORD_WARN_NOTIFICATION_URL"); url != "" {
		return url
	}
	return DiscordErrorNotificationUrl()
}

func CopernicusClientIDs() string {
	return os.Getenv("COPERNICUS_CLIENT_ID")
}

func CopernicusClientSecrets() string {
	return os.Getenv("COPERNICUS_CLIENT_SECRET")
}

func CopernicusTokenURL() string {
	return os.Getenv("COPERNICUS_TOKEN_URL")
}
