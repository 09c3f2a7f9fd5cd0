package worldmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxKellermann/uoproxy-sub000/internal/protover"
	"github.com/MaxKellermann/uoproxy-sub000/internal/wire"
)

func TestApplyStartSetsAnchor(t *testing.T) {
	w := New()
	w.ApplyStart(wire.Start{Serial: 0x1001, Body: 400, X: 10, Y: 20, Z: 0, Direction: 1})
	assert.True(t, w.PlayerAnchor.InGame())
	assert.EqualValues(t, 0x1001, w.PlayerAnchor.Serial)
}

func TestApplyDeleteMobileCascadesToEquippedItems(t *testing.T) {
	w := New()
	w.ApplyMobileIncoming(wire.MobileIncoming{Serial: 0x01, Body: 400})
	w.ApplyEquip(wire.Equip{ItemSerial: 0x40000001, ParentSerial: 0x01, Layer: 1})
	require.Contains(t, w.Items, Serial(0x40000001))

	w.ApplyDelete(Serial(0x01))
	assert.NotContains(t, w.Mobiles, Serial(0x01))
	assert.NotContains(t, w.Items, Serial(0x40000001))
}

func TestApplyDeleteItemCascadesSubtree(t *testing.T) {
	w := New()
	w.ApplyWorldItem7(wire.WorldItem7{Serial: 0x40000001})
	w.ApplyContainerUpdate(wire.ContainerUpdate{ItemSerial: 0x40000002, ParentSerial: 0x40000001})

	w.ApplyDelete(Serial(0x40000001))
	assert.NotContains(t, w.Items, Serial(0x40000001))
	assert.NotContains(t, w.Items, Serial(0x40000002))
}

func TestApplyContainerContentSweepsStaleChildren(t *testing.T) {
	w := New()
	w.ApplyContainerContent([]wire.ContainerUpdate{
		{ItemSerial: 0x40000010, ParentSerial: 0x40000001},
		{ItemSerial: 0x40000011, ParentSerial: 0x40000001},
	})
	require.Len(t, w.Items, 2)

	w.ApplyContainerContent([]wire.ContainerUpdate{
		{ItemSerial: 0x40000010, ParentSerial: 0x40000001},
	})
	assert.Contains(t, w.Items, Serial(0x40000010))
	assert.NotContains(t, w.Items, Serial(0x40000011))
}

func TestApplyMobileStatusKeepsGreaterFlags(t *testing.T) {
	w := New()
	w.ApplyMobileStatus(wire.MobileStatus{Serial: 0x01, Flags: wire.StatusFlagFull, HP: 50})
	w.ApplyMobileStatus(wire.MobileStatus{Serial: 0x01, Flags: wire.StatusFlagBasic, HP: 10})
	assert.EqualValues(t, 50, w.Mobiles[Serial(0x01)].LastStatus.HP)
}

func TestApplyPersonalLightFiltersToPlayer(t *testing.T) {
	w := New()
	w.ApplyStart(wire.Start{Serial: 0x01})
	w.ApplyPersonalLight(wire.PersonalLightLevel{Serial: 0x02, Level: 5})
	assert.False(t, w.Ambient.HasPersonalLight)

	w.ApplyPersonalLight(wire.PersonalLightLevel{Serial: 0x01, Level: 5})
	assert.True(t, w.Ambient.HasPersonalLight)
}

func TestReplayOrdersParentBeforeChild(t *testing.T) {
	w := New()
	w.ApplyStart(wire.Start{Serial: 0x01})
	w.ApplyWorldItem7(wire.WorldItem7{Serial: 0x40000001})
	w.ApplyContainerUpdate(wire.ContainerUpdate{ItemSerial: 0x40000002, ParentSerial: 0x40000001})

	envs := w.Replay(protover.V7)
	require.NotEmpty(t, envs)

	parentIdx, childIdx := -1, -1
	for i, e := range envs {
		if e.Opcode == wire.OpWorldItem7 {
			parentIdx = i
		}
		if e.Opcode == wire.OpContainerUpdate {
			childIdx = i
		}
	}
	require.NotEqual(t, -1, parentIdx)
	require.NotEqual(t, -1, childIdx)
	assert.Less(t, parentIdx, childIdx)
	assert.Equal(t, wire.OpLoginComplete, envs[len(envs)-1].Opcode)
}

func TestReplayDowngradesForV5(t *testing.T) {
	w := New()
	w.ApplyStart(wire.Start{Serial: 0x01})
	w.ApplyWorldItem7(wire.WorldItem7{Serial: 0x40000001, Amount: 1})

	envs := w.Replay(protover.V5)
	found := false
	for _, e := range envs {
		if e.Opcode == wire.OpWorldItem {
			found = true
		}
		assert.NotEqual(t, wire.OpWorldItem7, e.Opcode)
	}
	assert.True(t, found)
}
