package strategy

// Хелперы для извлечения значений из Options узла.

// OptFloat извлекает число из опций, с значением по умолчанию.
func OptFloat(options map[string]any, key string, def float64) float64 {
	if v, ok := options[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return def
}

// OptInt извлекает целое из опций, с значением по умолчанию.
func OptInt(options map[string]any, key string, def int) int {
	if v, ok := options[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return def
}

// OptBool извлекает булево из опций, с значением по умолчанию.
func OptBool(options map[string]any, key string, def bool) bool {
	if v, ok := options[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}
