package config

// mergeConfigs merges override configuration into base. Scalar fields in
// override win when set; lists replace rather than append.
func mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}

	// Merge server
	if override.Server.Listen != "" {
		result.Server.Listen = override.Server.Listen
	}
	if override.Server.ShutdownTimeout != "" {
		result.Server.ShutdownTimeout = override.Server.ShutdownTimeout
	}

	// Merge launch
	if override.Launch.Interpreter != "" {
		result.Launch.Interpreter = override.Launch.Interpreter
	}
	if override.Launch.EntryPoint != "" {
		result.Launch.EntryPoint = override.Launch.EntryPoint
	}
	if override.Launch.FrameworkModule != "" {
		result.Launch.FrameworkModule = override.Launch.FrameworkModule
	}
	if override.Launch.FrameworkName != "" {
		result.Launch.FrameworkName = override.Launch.FrameworkName
	}
	if override.Launch.FrameworkArgs != nil {
		result.Launch.FrameworkArgs = append([]string(nil), override.Launch.FrameworkArgs...)
	}
	if override.Launch.ReadinessTimeout != "" {
		result.Launch.ReadinessTimeout = override.Launch.ReadinessTimeout
	}

	// Merge scan
	if override.Scan.Root != "" {
		result.Scan.Root = override.Scan.Root
	}
	if override.Scan.Ignore != nil {
		result.Scan.Ignore = append([]string(nil), override.Scan.Ignore...)
	}
	if override.Scan.FrameworkKeyword != "" {
		result.Scan.FrameworkKeyword = override.Scan.FrameworkKeyword
	}

	// Merge extensions key by key
	if len(override.Extensions) > 0 {
		merged := make(map[string]interface{}, len(base.Extensions)+len(override.Extensions))
		for k, v := range base.Extensions {
			merged[k] = v
		}
		for k, v := range override.Extensions {
			merged[k] = v
		}
		result.Extensions = merged
	}

	result.Sources = append(append([]string(nil), base.Sources...), override.Sources...)

	return &result
}
