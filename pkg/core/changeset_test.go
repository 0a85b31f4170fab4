package core

import (
	"testing"

	"github.com/oneconcern/pkgr/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func infos(pairs ...string) []model.PackageInfo {
	res := make([]model.PackageInfo, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		res = append(res, model.PackageInfo{ID: pairs[i], LatestVersion: pairs[i+1]})
	}
	return res
}

func kinds(set ChangeSet) map[string]ChangeKind {
	res := make(map[string]ChangeKind, len(set.Changes))
	for _, ch := range set.Changes {
		res[ch.ID] = ch.Kind
	}
	return res
}

func TestPlanSync(t *testing.T) {
	defer goleak.VerifyNone(t)

	cached := infos("alpha", "1", "beta", "1", "gamma", "1", "delta", "1")
	listing := infos("alpha", "1", "beta", "2", "delta", "1", "omega", "1")
	installed := Installed{
		"alpha": {"1"},
		"beta":  {"1"},
		"gamma": {"1"},
	}

	t.Run("incremental", func(t *testing.T) {
		set := PlanSync("main", cached, listing, installed, false)
		assert.Equal(t, map[string]ChangeKind{
			"alpha": Unchanged,
			"beta":  Update,
			"delta": Repair,
			"omega": Add,
		}, kinds(set))
		assert.Empty(t, set.Removals())
		assert.Len(t, set.Installs(), 3)
		assert.False(t, set.Empty())

		for i := 1; i < len(set.Changes); i++ {
			assert.Less(t, set.Changes[i-1].ID, set.Changes[i].ID)
		}
		for _, ch := range set.Changes {
			assert.Equal(t, "main", ch.Source)
			if ch.ID == "beta" {
				assert.Equal(t, "1", ch.Previous)
				assert.Equal(t, "2", ch.Version)
			}
		}
	})

	t.Run("mirror", func(t *testing.T) {
		set := PlanSync("main", cached, listing, installed, true)
		assert.Equal(t, map[string]ChangeKind{
			"alpha": Unchanged,
			"beta":  Update,
			"delta": Repair,
			"gamma": Remove,
			"omega": Add,
		}, kinds(set))
		removals := set.Removals()
		require.Len(t, removals, 1)
		assert.Equal(t, "1", removals[0].Previous)
		assert.True(t, set.Mirror)
	})

	t.Run("nothing to do", func(t *testing.T) {
		set := PlanSync("main", infos("alpha", "1"), infos("alpha", "1"), installed, true)
		assert.True(t, set.Empty())
		assert.Equal(t, 1, set.Count(Unchanged))
	})

	t.Run("empty cache", func(t *testing.T) {
		set := PlanSync("main", nil, listing, nil, true)
		assert.Equal(t, len(listing), set.Count(Add))
	})
}

func TestPlanUpgrade(t *testing.T) {
	installed := Installed{
		"demo":     {"0.1.0"},
		"other":    {"1.0"},
		"rollback": {"2", "1"},
		"local":    {"x"},
	}
	latest := map[string]string{"demo": "0.1.0", "other": "1.0", "rollback": "1", "local": "x"}
	available := map[string]availablePackage{
		"demo":     {PackageInfo: model.PackageInfo{ID: "demo", LatestVersion: "0.2.0"}, Source: "main"},
		"other":    {PackageInfo: model.PackageInfo{ID: "other", LatestVersion: "1.0"}, Source: "main"},
		"rollback": {PackageInfo: model.PackageInfo{ID: "rollback", LatestVersion: "2"}, Source: "main"},
		"unknown":  {PackageInfo: model.PackageInfo{ID: "unknown", LatestVersion: "1"}, Source: "main"},
	}

	set := PlanUpgrade(latest, installed, available)
	assert.Equal(t, map[string]ChangeKind{
		"demo":     Update,
		"other":    Unchanged,
		"rollback": Unchanged,
		"local":    Unchanged,
	}, kinds(set))

	upgrades := set.Installs()
	require.Len(t, upgrades, 1)
	assert.Equal(t, "main", upgrades[0].Source)
	assert.Equal(t, "0.1.0", upgrades[0].Previous)
	assert.Equal(t, "0.2.0", upgrades[0].Version)

	set = PlanUpgrade(latest, installed, available, "other")
	assert.True(t, set.Empty())
	assert.Len(t, set.Changes, 1)
}

func TestChangeKindString(t *testing.T) {
	for kind, expected := range map[ChangeKind]string{
		Add: "add", Update: "update", Repair: "repair", Remove: "remove", Unchanged: "unchanged",
	} {
		assert.Equal(t, expected, kind.String())
	}
}
