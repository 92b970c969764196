package profile

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads and validates a profile from the given YAML file. It uses a
// dedicated viper instance so the profile file stays independent from the
// main configuration.
func Load(path string) (*Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading profile file: %w", err)
	}

	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validating profile: %w", err)
	}

	return &p, nil
}
