package badger

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// SettingEntry is one setting in a TOML settings file.
// Format:
//
//	[google-maps-key]
//	value = "AIza..."
//	description = "Maps key served to the web client"
type SettingEntry struct {
	Value       string `toml:"value"`
	Description string `toml:"description"`
}

// LoadSettingsFromFiles loads settings into the key/value store from every
// .toml file in dirPath. A missing directory is not an error; deployments
// without file-based settings simply skip this step.
func (m *Manager) LoadSettingsFromFiles(ctx context.Context, dirPath string) error {
	if dirPath == "" {
		m.logger.Debug().Msg("No settings directory configured, skipping")
		return nil
	}

	if info, err := os.Stat(dirPath); err != nil || !info.IsDir() {
		m.logger.Debug().Str("dir", dirPath).Msg("Settings directory does not exist, skipping")
		return nil
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		m.logger.Warn().Err(err).Str("dir", dirPath).Msg("Failed to read settings directory")
		return nil // Non-fatal
	}

	loadedCount := 0
	skippedCount := 0
	errorCount := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}

		loaded, skipped, errors := m.loadSettingsFile(ctx, filepath.Join(dirPath, entry.Name()))
		loadedCount += loaded
		skippedCount += skipped
		errorCount += errors
	}

	m.logger.Debug().
		Str("dir", dirPath).
		Int("loaded", loadedCount).
		Int("skipped", skippedCount).
		Int("errors", errorCount).
		Msg("Finished loading settings from files")

	return nil
}

// loadSettingsFile loads settings from a single TOML file
func (m *Manager) loadSettingsFile(ctx context.Context, filePath string) (loaded, skipped, errors int) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		m.logger.Warn().Err(err).Str("file", filePath).Msg("Failed to read settings file")
		return 0, 0, 1
	}

	var settings map[string]SettingEntry
	if err := toml.Unmarshal(content, &settings); err != nil {
		m.logger.Warn().Err(err).Str("file", filePath).Msg("Failed to parse settings file")
		return 0, 0, 1
	}

	fileName := filepath.Base(filePath)
	for key, setting := range settings {
		if setting.Value == "" {
			m.logger.Warn().Str("file", fileName).Str("key", key).Msg("Skipping setting with empty value")
			skipped++
			continue
		}

		description := setting.Description
		if description == "" {
			description = "Loaded from " + fileName
		}

		isNew, err := m.kv.Upsert(ctx, key, setting.Value, description)
		if err != nil {
			m.logger.Error().Err(err).Str("key", key).Msg("Failed to store setting")
			errors++
			continue
		}

		if isNew {
			m.logger.Debug().Str("key", key).Str("file", fileName).Msg("Loaded new setting")
		} else {
			m.logger.Debug().Str("key", key).Str("file", fileName).Msg("Updated existing setting")
		}
		loaded++
	}

	return loaded, skipped, errors
}
