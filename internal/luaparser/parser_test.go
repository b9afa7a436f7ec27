package luaparser

import (
	"strings"
	"testing"
)

const sampleScript = `-- Silent Valley (Base Game)
addappid(2305270)
addappid(2305271, 1, "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4") -- Silent Valley Content
-- Size: 42.50 GB (45634027520 bytes)
addappid(2305272, 1, "ffeeddccbbaa99887766554433221100") -- Silent Valley French
-- Size: 1.20 GB (1288490188 bytes)

-- Silent Valley - Bonus Content (AppID: 3282720)
addtoken(3282720, "186020997252537705")
addappid(3282721, 1, "00112233445566778899aabbccddeeff") -- Bonus Soundtrack
`

func TestParseDepots(t *testing.T) {
	records := ParseDepots(sampleScript, "2305270")

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %+v", len(records), records)
	}

	byID := make(map[string]DepotRecord)
	for _, r := range records {
		byID[r.DepotID] = r
	}

	content := byID["2305271"]
	if content.Name != "Silent Valley Content" {
		t.Errorf("name = %q", content.Name)
	}
	if content.SizeBytes != 45634027520 {
		t.Errorf("size = %d", content.SizeBytes)
	}
	if content.DLCAppID != "" || content.IsTokenBased {
		t.Errorf("base depot got DLC/token flags: %+v", content)
	}

	french := byID["2305272"]
	if french.SizeBytes != 1288490188 {
		t.Errorf("french size = %d", french.SizeBytes)
	}

	bonus := byID["3282721"]
	if bonus.DLCAppID != "3282720" || bonus.DLCName != "Silent Valley - Bonus Content" {
		t.Errorf("DLC context not attached: %+v", bonus)
	}
	if !bonus.IsTokenBased {
		t.Error("depot under addtoken DLC should be token based")
	}
}

func TestParseDepotsFirstSeenWins(t *testing.T) {
	script := `addappid(100, 1, "aa") -- First Name
addappid(100, 1, "aa") -- Second Name
`
	records := ParseDepots(script, "")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Name != "First Name" {
		t.Errorf("name = %q, want first declaration kept", records[0].Name)
	}
}

func TestParseDepotsRejectsNonNumericIDs(t *testing.T) {
	script := `addappid(branches) -- not a depot
addappid(200) -- Real Depot
`
	records := ParseDepots(script, "")
	if len(records) != 1 || records[0].DepotID != "200" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestParseDepotsMalformedLinesSkipped(t *testing.T) {
	script := `this is not lua at all
addappid(
-- Size: garbage
addappid(300, 1, "aa") -- Valid
`
	records := ParseDepots(script, "")
	if len(records) != 1 || records[0].DepotID != "300" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestSizeLookbackWindow(t *testing.T) {
	script := strings.Join([]string{
		`addappid(400, 1, "aa") -- Far Depot`,
		"", "", "", "", "", "",
		"-- Size: 1.00 KB (1024 bytes)",
	}, "\n")
	records := ParseDepots(script, "")
	if records[0].SizeBytes != 0 {
		t.Errorf("size attached across more than 5 lines: %d", records[0].SizeBytes)
	}

	script = strings.Join([]string{
		`addappid(400, 1, "aa") -- Near Depot`,
		"", "",
		"-- Size: 1.00 KB (1024 bytes)",
	}, "\n")
	records = ParseDepots(script, "")
	if records[0].SizeBytes != 1024 {
		t.Errorf("size not attached within window: %d", records[0].SizeBytes)
	}
}

func TestParseTokenAppIDs(t *testing.T) {
	tokens := ParseTokenAppIDs(sampleScript)
	if _, ok := tokens["3282720"]; !ok {
		t.Error("missing token app id")
	}
	if len(tokens) != 1 {
		t.Errorf("token set = %v", tokens)
	}
}

func TestExtractDepotKeys(t *testing.T) {
	keys := ExtractDepotKeys(sampleScript)
	want := map[string]string{
		"2305271": "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4",
		"2305272": "ffeeddccbbaa99887766554433221100",
		"3282721": "00112233445566778899aabbccddeeff",
	}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v", keys)
	}
	for id, k := range want {
		if keys[id] != k {
			t.Errorf("key[%s] = %q, want %q", id, keys[id], k)
		}
	}
}

func TestParseDeclaredAppIDs(t *testing.T) {
	script := "addappid(220)\naddappid(221, 1, \"aabb\")\naddappid(220)\naddtoken(300, \"t\")\nnot a call"
	got := ParseDeclaredAppIDs(script)
	want := []string{"220", "221"}
	if len(got) != len(want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCalculateTotalSize(t *testing.T) {
	records := []DepotRecord{{SizeBytes: 100}, {SizeBytes: 250}, {}}
	if got := CalculateTotalSize(records); got != 350 {
		t.Errorf("total = %d", got)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{45634027520, "42.5 GB"},
		{1288490188, "1.2 GB"},
		{1099511627776, "1 TB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
