package cliconfig

// ReloadStream re-reads the stream related parts of the config file at path
// on top of cfg: the [stream] section and the enabled, required,
// custom_fields and fields keys of platforms already configured. Environment
// variables and explicitly set flags keep their precedence. Connection
// settings are not reloaded; adapters are built once per run.
func ReloadStream(cfg Config, path string, changed map[string]bool) (Config, error) {
	fc, err := LoadFileConfig(path)
	if err != nil {
		return cfg, err
	}

	out := cfg
	out.Platforms = make([]PlatformConfig, len(cfg.Platforms))
	copy(out.Platforms, cfg.Platforms)

	ApplyStreamFileConfig(&out.Stream, fc.Stream, changed)

	byID := make(map[string]int, len(out.Platforms))
	for i, p := range out.Platforms {
		byID[p.ID] = i
	}
	for _, fp := range fc.Platforms {
		id := fp.ID
		if id == "" {
			id = fp.Type
		}
		i, ok := byID[id]
		if !ok {
			continue
		}
		p := &out.Platforms[i]
		p.Enabled = fp.Enabled
		p.Required = fp.Required
		p.CustomFields = fp.CustomFields
		p.Fields = fp.Fields
	}

	if err := ApplyEnvConfig(&out, changed); err != nil {
		return cfg, err
	}
	return out, nil
}
