// Package depotfilter selects the depots to unlock for a chosen language by
// combining script-extracted depot keys with remote depot metadata.
package depotfilter

import (
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/depotctl/depotctl/internal/steamcmd"
)

// Engine applies the language and eligibility rules. Main-game, DLC and
// shared depots have different rule sets, so each gets its own pass.
type Engine struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Engine {
	return &Engine{log: log}
}

// AvailableLanguages returns the display list of languages that have at
// least one usable depot, title-cased and sorted. When metadata is missing
// or yields nothing, it falls back to English.
func (e *Engine) AvailableLanguages(info *steamcmd.DepotInfoResponse, appID string, depotKeys map[string]string) []string {
	app, ok := info.App(appID)
	if !ok {
		return []string{"English"}
	}

	var languages []string
	seen := make(map[string]struct{})
	hasBaseDepots := false

	for _, depotID := range sortedDepotIDs(app.Depots) {
		depot := app.Depots[depotID]

		if !isNumeric(depotID) {
			continue
		}
		if depotKeys != nil {
			if _, ok := depotKeys[depotID]; !ok {
				continue
			}
		}
		if !depot.HasManifest() {
			continue
		}
		if depot.Config != nil && strings.EqualFold(depot.Config.Realm, "steamchina") {
			continue
		}

		if depot.Config != nil && depot.Config.Language != "" {
			lang := depot.Config.Language
			if _, dup := seen[lang]; !dup {
				seen[lang] = struct{}{}
				languages = append(languages, lang)
			}
		} else {
			// No declared language counts as a base (English) depot.
			hasBaseDepots = true
		}
	}

	if _, hasEnglish := seen["english"]; hasBaseDepots && !hasEnglish {
		languages = append([]string{"english"}, languages...)
	}

	if len(languages) == 0 {
		e.log.Warn("no languages found in depots, defaulting to English",
			zap.String("app", appID))
		return []string{"English"}
	}

	sort.Strings(languages)
	out := make([]string, len(languages))
	for i, l := range languages {
		out[i] = titleCase(l)
	}
	return out
}

// DepotsForLanguage returns the ordered depot ids to unlock: base depots
// first, then language-specific ones. Consumers rely on that order so base
// content is unlocked before language overlays.
func (e *Engine) DepotsForLanguage(
	info *steamcmd.DepotInfoResponse,
	depotKeys map[string]string,
	language, appID string,
	blacklistedApps, blockedDepots map[string]struct{},
) []string {
	app, ok := info.App(appID)
	if !ok {
		e.log.Warn("no depot metadata for app", zap.String("app", appID))
		return nil
	}

	if blacklistedApps == nil {
		blacklistedApps = map[string]struct{}{}
	}
	if blockedDepots == nil {
		blockedDepots = map[string]struct{}{}
	}

	e.log.Info("filtering depots",
		zap.String("app", appID), zap.String("language", language))

	var baseDepots, languageDepots []string
	wantLang := strings.ToLower(language)
	ids := sortedDepotIDs(app.Depots)

	bucket := func(cfg *steamcmd.DepotConfig, depotID string) {
		depotLang := strings.ToLower(cfg.Language)
		switch {
		case depotLang == "" || depotLang == "english":
			baseDepots = append(baseDepots, depotID)
		case wantLang != "english" && depotLang == wantLang:
			languageDepots = append(languageDepots, depotID)
		}
	}

	// Pass 1: main-game depots.
	for _, depotID := range ids {
		depot := app.Depots[depotID]
		if !eligible(depotID, depot, depotKeys, blockedDepots) {
			continue
		}
		if depot.DLCAppID != "" || depot.DepotFromApp != "" {
			continue
		}
		if depot.Config == nil {
			baseDepots = append(baseDepots, depotID)
			continue
		}
		if excludedByConfig(depot.Config) {
			continue
		}
		bucket(depot.Config, depotID)
	}

	// Pass 2: DLC depots, same rules but gated on a parent app id.
	for _, depotID := range ids {
		depot := app.Depots[depotID]
		if !eligible(depotID, depot, depotKeys, blockedDepots) {
			continue
		}
		if depot.DLCAppID == "" {
			continue
		}
		if depot.Config == nil {
			baseDepots = append(baseDepots, depotID)
			continue
		}
		if excludedByConfig(depot.Config) {
			continue
		}
		bucket(depot.Config, depotID)
	}

	// Pass 3: shared depots borrowed from another app. The language rule is
	// stricter here: a declared language must match exactly or the depot is
	// dropped, with no include-as-base exception.
	for _, depotID := range ids {
		depot := app.Depots[depotID]
		if !isNumeric(depotID) {
			continue
		}
		if _, ok := depotKeys[depotID]; !ok {
			continue
		}
		if depot.DepotFromApp == "" || depot.SharedInstall == "" {
			continue
		}
		if _, blocked := blockedDepots[depotID]; blocked {
			continue
		}
		if _, blacklisted := blacklistedApps[depot.DepotFromApp]; blacklisted {
			continue
		}
		if depot.Config == nil {
			continue
		}
		if excludedByConfig(depot.Config) {
			continue
		}
		depotLang := strings.ToLower(depot.Config.Language)
		if depotLang != "" && depotLang != wantLang {
			continue
		}
		if depotLang != "" {
			languageDepots = append(languageDepots, depotID)
		} else {
			baseDepots = append(baseDepots, depotID)
		}
	}

	final := append(baseDepots, languageDepots...)
	e.log.Info("final depot list",
		zap.String("app", appID), zap.Strings("depots", final))
	return final
}

// eligible covers the checks common to the main-game and DLC passes.
func eligible(depotID string, depot steamcmd.Depot, depotKeys map[string]string, blockedDepots map[string]struct{}) bool {
	if !isNumeric(depotID) {
		return false
	}
	if _, ok := depotKeys[depotID]; !ok {
		return false
	}
	if !depot.HasManifest() {
		return false
	}
	if _, blocked := blockedDepots[depotID]; blocked {
		return false
	}
	return true
}

func excludedByConfig(cfg *steamcmd.DepotConfig) bool {
	if strings.EqualFold(cfg.Realm, "steamchina") {
		return true
	}
	if cfg.LowViolence == "1" {
		return true
	}
	if cfg.OSList == "macos" || cfg.OSList == "linux" {
		return true
	}
	return false
}

func isNumeric(s string) bool {
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil && s != ""
}

// sortedDepotIDs gives a stable walk order over the metadata map, numeric
// ids first in numeric order.
func sortedDepotIDs(depots map[string]steamcmd.Depot) []string {
	ids := make([]string, 0, len(depots))
	for id := range depots {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, aerr := strconv.ParseUint(ids[i], 10, 64)
		b, berr := strconv.ParseUint(ids[j], 10, 64)
		if aerr == nil && berr == nil {
			return a < b
		}
		if aerr == nil {
			return true
		}
		if berr == nil {
			return false
		}
		return ids[i] < ids[j]
	})
	return ids
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
