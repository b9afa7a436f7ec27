package steamcmd

// DepotInfoResponse is the tree returned by the depot-metadata API,
// keyed by app id and then depot id.
type DepotInfoResponse struct {
	Data   map[string]AppData `json:"data"`
	Status string             `json:"status"`
}

// App returns the metadata for one app id, if present.
func (r *DepotInfoResponse) App(appID string) (AppData, bool) {
	if r == nil || r.Data == nil {
		return AppData{}, false
	}
	app, ok := r.Data[appID]
	return app, ok
}

type AppData struct {
	Depots map[string]Depot `json:"depots"`
	Common Common           `json:"common"`
}

type Common struct {
	Name string `json:"name"`
}

// Depot describes one depot entry. Optional fields are empty when the API
// omits them; Config is nil for depots with no config block at all.
type Depot struct {
	Config        *DepotConfig        `json:"config,omitempty"`
	Manifests     map[string]Manifest `json:"manifests,omitempty"`
	DLCAppID      string              `json:"dlcappid,omitempty"`
	DepotFromApp  string              `json:"depotfromapp,omitempty"`
	SharedInstall string              `json:"sharedinstall,omitempty"`
}

// HasManifest reports whether the depot carries at least one manifest with a
// non-empty gid. Depots without one are not downloadable and get excluded.
func (d Depot) HasManifest() bool {
	for _, m := range d.Manifests {
		if m.GID != "" {
			return true
		}
	}
	return false
}

type DepotConfig struct {
	Language    string `json:"language,omitempty"`
	OSList      string `json:"oslist,omitempty"`
	LowViolence string `json:"lowviolence,omitempty"`
	Realm       string `json:"realm,omitempty"`
}

type Manifest struct {
	GID      string `json:"gid,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Download int64  `json:"download,omitempty"`
}
