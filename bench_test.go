package langtree

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"
)

// benchSnapshot generates a catalog shaped like the production one: a few
// hundred language families several levels deep, a dictionary or two per
// language and grants claiming a slice of them.
func benchSnapshot(nLang int) Snapshot {
	rng := rand.New(rand.NewPCG(1, 1))
	snap := Snapshot{}
	for i := 1; i <= nLang; i++ {
		l := Language{
			ID:          id(int64(i), 1),
			Translation: fmt.Sprintf("%c%s %d", 'A'+rng.IntN(26), "language", i),
			CreatedAt:   epoch.Add(time.Duration(rng.IntN(1000)) * time.Hour),
		}
		if i > 300 {
			l.ParentID = ptr(id(int64(1+rng.IntN(i-1)), 1))
		}
		snap.Languages = append(snap.Languages, l)
	}
	for i := range nLang * 2 {
		d := dict(int64(1_000_000+i), int64(1+rng.IntN(nLang)), fmt.Sprintf("Dictionary %d", i), Category(rng.IntN(2)))
		d.Perspectives = []Perspective{
			{ID: id(int64(2_000_000+2*i), 1), Translation: "Lexical entries"},
			{ID: id(int64(2_000_000+2*i+1), 1), Translation: "Paradigms"},
		}
		snap.Dictionaries = append(snap.Dictionaries, d)
	}
	for g := range 50 {
		grant := Grant{ID: id(int64(g+1), 3), Translation: fmt.Sprintf("Grant %d", g)}
		for range 40 {
			grant.ParticipantIDs = append(grant.ParticipantIDs, id(int64(1_000_000+rng.IntN(nLang*2)), 1))
		}
		snap.Grants = append(snap.Grants, grant)
	}
	return snap
}

func BenchmarkBrowse(b *testing.B) {
	snap := benchSnapshot(5000)
	for _, par := range []int{1, 8} {
		b.Run(fmt.Sprintf("parallelism=%d", par), func(b *testing.B) {
			e := quietEngine(WithParallelism(par))
			b.ReportAllocs()
			for b.Loop() {
				e.Browse(snap)
			}
		})
	}
}

func BenchmarkReconstructPartial(b *testing.B) {
	snap := benchSnapshot(5000)
	rng := rand.New(rand.NewPCG(2, 2))
	matches := make([]Match, 0, 200)
	for i := range 200 {
		d := snap.Dictionaries[rng.IntN(len(snap.Dictionaries))]
		matches = append(matches, Match{
			ID:            id(int64(10_000_000+i), 1),
			Translation:   fmt.Sprintf("entry %d", i),
			PerspectiveID: ptr(d.Perspectives[0].ID),
			DictionaryID:  d.ID,
		})
	}
	e := quietEngine()
	b.ReportAllocs()
	for b.Loop() {
		e.ReconstructPartial(matches, snap.Languages, snap.Dictionaries)
	}
}
