package utils

// Server-side messages for fixed keys. Report texts come from the catalogs.
var translations = map[string]map[string]string{
	"it": {
		"health.ok":            "ok",
		"error.invalid":        "Richiesta non valida",
		"error.not_found":      "Risorsa non trovata",
		"error.conflict":       "Operazione non consentita nello stato attuale",
		"error.unauthorized":   "Accesso non autorizzato",
		"error.bad_gateway":    "Servizio esterno non disponibile",
		"error.unavailable":    "Funzione non configurata",
		"error.internal":       "Errore interno",
		"upload.started":       "Caricamento avviato",
	},
	"en": {
		"health.ok":            "ok",
		"error.invalid":        "Invalid request",
		"error.not_found":      "Not found",
		"error.conflict":       "Not allowed in the current state",
		"error.unauthorized":   "Unauthorized",
		"error.bad_gateway":    "Upstream service unavailable",
		"error.unavailable":    "Feature not configured",
		"error.internal":       "Internal error",
		"upload.started":       "Upload started",
	},
}

// SupportedLocales lists the locales T knows, default first.
var SupportedLocales = []string{"it", "en"}

// T returns the translated string for key in locale; falls back to Italian,
// then to the key itself.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := translations["it"][key]; ok {
		return v
	}
	return key
}
