package resolver

import "testing"

func TestNormalizeFoldsCaseAndWhitespace(t *testing.T) {
	n := Normalize(Raw{Title: "  Midnight   City ", Artist: "M83", DurationS: 241})
	if n.TitleNorm != "midnight city" {
		t.Fatalf("TitleNorm = %q", n.TitleNorm)
	}
	if n.ArtistNorm != "m83" {
		t.Fatalf("ArtistNorm = %q", n.ArtistNorm)
	}
	if n.DurationS != 241 {
		t.Fatalf("DurationS = %d", n.DurationS)
	}
}

func TestNormalizeRejectsOutOfRangeDuration(t *testing.T) {
	n := Normalize(Raw{Title: "x", Artist: "y", DurationS: 21601})
	if n.DurationS != 0 {
		t.Fatalf("expected duration dropped, got %d", n.DurationS)
	}
}

func TestNormalizeValidatesISRCAndMBID(t *testing.T) {
	n := Normalize(Raw{ISRC: "usrc17607839", MBID: "not-a-uuid"})
	if n.ISRCNorm != "USRC17607839" {
		t.Fatalf("ISRCNorm = %q", n.ISRCNorm)
	}
	if n.MBIDNorm != "" {
		t.Fatalf("expected invalid mbid rejected, got %q", n.MBIDNorm)
	}
}

func TestTrackKeyStableAcrossDurationDrift(t *testing.T) {
	a := Normalize(Raw{Title: "Song", Artist: "Artist", DurationS: 180})
	b := Normalize(Raw{Title: "Song", Artist: "Artist", DurationS: 181})
	if a.TrackKey != b.TrackKey {
		t.Fatalf("expected bucketed duration to absorb ±1s drift: %s vs %s", a.TrackKey, b.TrackKey)
	}
}

func TestTrackKeyMatchesAcrossRemasterSuffix(t *testing.T) {
	plain := Normalize(Raw{Title: "Toxic", Artist: "Britney Spears"})
	remastered := Normalize(Raw{Title: "Toxic (Remaster)", Artist: "Britney Spears"})
	if plain.TrackKey != remastered.TrackKey {
		t.Fatalf("expected \"Toxic (Remaster)\" to track_key-match \"Toxic\": %s vs %s", remastered.TrackKey, plain.TrackKey)
	}
	if remastered.TitleNorm != "toxic" {
		t.Fatalf("TitleNorm = %q, want the remaster suffix stripped", remastered.TitleNorm)
	}
}

func TestTrackKeyIncompleteVariantWhenArtistMissing(t *testing.T) {
	withArtist := Normalize(Raw{Title: "Song", Artist: "Artist"})
	withoutArtist := Normalize(Raw{Title: "Song", Album: "Album"})
	if withArtist.TrackKey == withoutArtist.TrackKey {
		t.Fatalf("expected different track keys for complete vs incomplete tuples")
	}
}

func TestSimilarityIdenticalStringsIsOne(t *testing.T) {
	if got := similarity("Hello World", "hello world"); got != 1 {
		t.Fatalf("similarity = %v, want 1", got)
	}
}

func TestDurationScoreTiers(t *testing.T) {
	cases := []struct {
		a, b int
		want float64
	}{
		{100, 101, 1.0},
		{100, 102, 0.9},
		{100, 104, 0.7},
		{100, 109, 0.4},
		{100, 130, 0},
	}
	for _, c := range cases {
		if got := durationScore(c.a, c.b); got != c.want {
			t.Fatalf("durationScore(%d,%d) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
