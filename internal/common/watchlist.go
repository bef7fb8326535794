package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// WatchedCoin is a coin the CLI tools offer and the portfolio report
// highlights.
type WatchedCoin struct {
	Id     string `yaml:"id"`
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
}

type WatchlistConfig struct {
	Coins []WatchedCoin `yaml:"coins"`
}

func LoadWatchlist(watchlistFile string) ([]WatchedCoin, error) {
	var watchlistPath string
	if filepath.IsAbs(watchlistFile) {
		watchlistPath = watchlistFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		watchlistPath = filepath.Join(wd, watchlistFile)
	}

	data, err := os.ReadFile(watchlistPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", watchlistFile, err)
	}

	var config WatchlistConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", watchlistFile, err)
	}

	seen := make(map[string]bool, len(config.Coins))
	for i, coin := range config.Coins {
		if coin.Id == "" {
			return nil, fmt.Errorf("coin at index %d missing id", i)
		}
		if coin.Symbol == "" {
			return nil, fmt.Errorf("coin at index %d missing symbol", i)
		}
		if seen[coin.Id] {
			return nil, fmt.Errorf("coin %s listed twice", coin.Id)
		}
		seen[coin.Id] = true
	}

	return config.Coins, nil
}

// FindWatchedCoin looks up a watched coin by id or, case-insensitively, by
// symbol.
func FindWatchedCoin(coins []WatchedCoin, key string) (WatchedCoin, bool) {
	for _, coin := range coins {
		if coin.Id == key || strings.EqualFold(coin.Symbol, key) {
			return coin, true
		}
	}
	return WatchedCoin{}, false
}
