package cachekey

import "testing"

func baseInput() Input {
	return Input{
		CommandLine: []string{"cat", "/stage/abc/in.txt"},
		Stdout:      "result",
		Files: map[string]FileFingerprint{
			"file:///data/in.txt": {Size: 6, ModTimeMs: 1234},
		},
		Requirements: map[string]any{
			"DockerRequirement": map[string]any{"dockerPull": "ubuntu:20.04"},
		},
	}
}

func TestDeterministic(t *testing.T) {
	in := baseInput()
	k1, err := Key(in)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := Key(in)
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 {
		t.Errorf("keys differ across identical evaluations: %s vs %s", k1, k2)
	}
}

func TestOrderOfFilesMapDoesNotMatterInGo(t *testing.T) {
	// map iteration order is randomized by the runtime; this asserts the
	// key is still the same regardless, since json.Marshal sorts map keys.
	in1 := baseInput()
	in1.Files["file:///data/other.txt"] = FileFingerprint{Size: 1, ModTimeMs: 1}
	in2 := Input{
		CommandLine: in1.CommandLine,
		Stdout:      in1.Stdout,
		Files: map[string]FileFingerprint{
			"file:///data/other.txt": {Size: 1, ModTimeMs: 1},
			"file:///data/in.txt":    {Size: 6, ModTimeMs: 1234},
		},
		Requirements: in1.Requirements,
	}
	k1, _ := Key(in1)
	k2, _ := Key(in2)
	if k1 != k2 {
		t.Errorf("keys differ despite identical content: %s vs %s", k1, k2)
	}
}

func TestDifferentCommandLineDifferentKey(t *testing.T) {
	in1 := baseInput()
	in2 := baseInput()
	in2.CommandLine = []string{"cat", "/stage/xyz/in.txt"}
	k1, _ := Key(in1)
	k2, _ := Key(in2)
	if k1 == k2 {
		t.Error("expected different keys for different command lines")
	}
}

func TestOnlyInterestingRequirementsIncluded(t *testing.T) {
	in1 := baseInput()
	in2 := baseInput()
	in2.Requirements["ResourceRequirement"] = map[string]any{"coresMin": 4}
	k1, _ := Key(in1)
	k2, _ := Key(in2)
	if k1 != k2 {
		t.Error("ResourceRequirement is not in the interesting set and should not affect the key")
	}
}

func TestChecksumPreferredOverModTime(t *testing.T) {
	in1 := baseInput()
	in2 := baseInput()
	in2.Files["file:///data/in.txt"] = FileFingerprint{Size: 6, ModTimeMs: 9999, Checksum: "sha1$aaaa"}
	k1, _ := Key(in1)
	k2, _ := Key(in2)
	if k1 == k2 {
		t.Error("expected checksum presence to change the key vs mtime-only fingerprint")
	}
}
