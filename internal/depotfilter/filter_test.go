package depotfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/depotctl/depotctl/internal/steamcmd"
)

func depotWith(lang string, extra func(*steamcmd.Depot)) steamcmd.Depot {
	d := steamcmd.Depot{
		Manifests: map[string]steamcmd.Manifest{"public": {GID: "111", Size: 10}},
	}
	if lang != "" {
		d.Config = &steamcmd.DepotConfig{Language: lang}
	}
	if extra != nil {
		extra(&d)
	}
	return d
}

func infoFor(appID string, depots map[string]steamcmd.Depot) *steamcmd.DepotInfoResponse {
	return &steamcmd.DepotInfoResponse{
		Data: map[string]steamcmd.AppData{appID: {Depots: depots}},
	}
}

func keysFor(ids ...string) map[string]string {
	keys := make(map[string]string)
	for _, id := range ids {
		keys[id] = "deadbeef"
	}
	return keys
}

func TestAvailableLanguagesNoMetadata(t *testing.T) {
	e := New(zap.NewNop())
	assert.Equal(t, []string{"English"}, e.AvailableLanguages(nil, "10", nil))
}

func TestAvailableLanguages(t *testing.T) {
	e := New(zap.NewNop())
	info := infoFor("10", map[string]steamcmd.Depot{
		"100": depotWith("", nil),
		"101": depotWith("french", nil),
		"102": depotWith("german", nil),
		"103": depotWith("schinese", func(d *steamcmd.Depot) {
			d.Config.Realm = "SteamChina"
		}),
		"104": depotWith("japanese", func(d *steamcmd.Depot) {
			d.Manifests = map[string]steamcmd.Manifest{"public": {GID: ""}}
		}),
		"branches": {},
	})

	got := e.AvailableLanguages(info, "10", keysFor("100", "101", "102", "103", "104"))
	assert.Equal(t, []string{"English", "French", "German"}, got)
}

func TestAvailableLanguagesKeyFilter(t *testing.T) {
	e := New(zap.NewNop())
	info := infoFor("10", map[string]steamcmd.Depot{
		"100": depotWith("", nil),
		"101": depotWith("french", nil),
	})

	// Without a key, the french depot contributes nothing.
	got := e.AvailableLanguages(info, "10", keysFor("100"))
	assert.Equal(t, []string{"English"}, got)
}

func TestDepotsForLanguageEndToEnd(t *testing.T) {
	e := New(zap.NewNop())
	info := infoFor("10", map[string]steamcmd.Depot{
		"100": depotWith("", nil),
		"101": depotWith("french", nil),
	})
	keys := keysFor("100", "101")

	require.Equal(t, []string{"100", "101"}, e.DepotsForLanguage(info, keys, "French", "10", nil, nil))
	require.Equal(t, []string{"100"}, e.DepotsForLanguage(info, keys, "English", "10", nil, nil))
}

func TestDepotsForLanguageDeterministic(t *testing.T) {
	e := New(zap.NewNop())
	depots := map[string]steamcmd.Depot{
		"105": depotWith("", nil),
		"101": depotWith("french", nil),
		"103": depotWith("", nil),
		"102": depotWith("french", nil),
		"104": depotWith("english", nil),
	}
	info := infoFor("10", depots)
	keys := keysFor("101", "102", "103", "104", "105")

	first := e.DepotsForLanguage(info, keys, "French", "10", nil, nil)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, e.DepotsForLanguage(info, keys, "French", "10", nil, nil))
	}

	// Ordering invariant: a split index separates base from language depots.
	assert.Equal(t, []string{"103", "104", "105", "101", "102"}, first)
}

func TestDepotsForLanguageExclusions(t *testing.T) {
	e := New(zap.NewNop())
	info := infoFor("10", map[string]steamcmd.Depot{
		"100": depotWith("", nil),
		"101": depotWith("", func(d *steamcmd.Depot) { d.Config = &steamcmd.DepotConfig{Realm: "steamchina"} }),
		"102": depotWith("", func(d *steamcmd.Depot) { d.Config = &steamcmd.DepotConfig{LowViolence: "1"} }),
		"103": depotWith("", func(d *steamcmd.Depot) { d.Config = &steamcmd.DepotConfig{OSList: "macos"} }),
		"104": depotWith("", func(d *steamcmd.Depot) { d.Config = &steamcmd.DepotConfig{OSList: "linux"} }),
		"105": depotWith("", func(d *steamcmd.Depot) { d.Manifests = nil }),
		"106": depotWith("", nil),
	})
	keys := keysFor("100", "101", "102", "103", "104", "105", "106")

	blocked := map[string]struct{}{"106": {}}
	got := e.DepotsForLanguage(info, keys, "English", "10", nil, blocked)
	assert.Equal(t, []string{"100"}, got)
}

func TestDepotsForLanguageConfiglessAlwaysBase(t *testing.T) {
	e := New(zap.NewNop())
	info := infoFor("10", map[string]steamcmd.Depot{
		"100": depotWith("", nil),
	})
	got := e.DepotsForLanguage(info, keysFor("100"), "Polish", "10", nil, nil)
	assert.Equal(t, []string{"100"}, got)
}

func TestDepotsForLanguageDLCPass(t *testing.T) {
	e := New(zap.NewNop())
	info := infoFor("10", map[string]steamcmd.Depot{
		"100": depotWith("", nil),
		"200": depotWith("", func(d *steamcmd.Depot) { d.DLCAppID = "11" }),
		"201": depotWith("german", func(d *steamcmd.Depot) { d.DLCAppID = "11" }),
	})
	keys := keysFor("100", "200", "201")

	got := e.DepotsForLanguage(info, keys, "German", "10", nil, nil)
	assert.Equal(t, []string{"100", "200", "201"}, got)

	got = e.DepotsForLanguage(info, keys, "English", "10", nil, nil)
	assert.Equal(t, []string{"100", "200"}, got)
}

func TestDepotsForLanguageSharedPass(t *testing.T) {
	e := New(zap.NewNop())
	shared := func(lang, fromApp string) steamcmd.Depot {
		return depotWith(lang, func(d *steamcmd.Depot) {
			d.DepotFromApp = fromApp
			d.SharedInstall = "1"
		})
	}
	info := infoFor("10", map[string]steamcmd.Depot{
		"100": depotWith("", nil),
		"300": shared("", "50"),
		"301": shared("french", "50"),
		"302": shared("english", "50"), // declared language != requested: dropped
		"303": shared("", "66"),        // blacklisted source app
	})
	keys := keysFor("100", "300", "301", "302", "303")
	blacklist := map[string]struct{}{"66": {}}

	got := e.DepotsForLanguage(info, keys, "French", "10", blacklist, nil)
	assert.Equal(t, []string{"100", "300", "301"}, got)
}

func TestDepotsForLanguageNoMetadata(t *testing.T) {
	e := New(zap.NewNop())
	assert.Empty(t, e.DepotsForLanguage(nil, keysFor("100"), "English", "10", nil, nil))
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"french":              "French",
		"SCHINESE":            "Schinese",
		"latin american":      "Latin American",
		"portuguese - brazil": "Portuguese - Brazil",
	}
	for in, want := range tests {
		assert.Equal(t, want, titleCase(in))
	}
}
