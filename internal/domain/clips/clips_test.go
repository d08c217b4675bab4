package clips

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwo-cv/merlcut/internal/types"
)

var pick = types.Class{Slot: 0, ID: 0, Label: "pick"}

func TestSeconds(t *testing.T) {
	tests := []struct {
		frame int
		fps   float64
		want  time.Duration
	}{
		{0, 30, 0},
		{30, 30, time.Second},
		{90, 30, 3 * time.Second},
		{1, 30, 30 * time.Millisecond},
		{2, 30, 70 * time.Millisecond},
		{100, 29.97, 3340 * time.Millisecond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Seconds(tt.frame, tt.fps), "frame %d at %v fps", tt.frame, tt.fps)
	}
}

func TestPlan_NamesAndDegenerate(t *testing.T) {
	tasks := Plan("v1", []types.FrameInterval{{Start: 0, End: 0}, {Start: 30, End: 90}}, pick, 30)
	require.Len(t, tasks, 2)

	assert.True(t, tasks[0].Degenerate())
	assert.Equal(t, "v1_0_pick_0", tasks[0].Name())

	assert.False(t, tasks[1].Degenerate())
	assert.Equal(t, "v1_0_pick_1", tasks[1].Name())
	assert.Equal(t, time.Second, tasks[1].Start)
	assert.Equal(t, 3*time.Second, tasks[1].End)
}

func TestPlan_AdjacentFramesCollapse(t *testing.T) {
	// at 1000fps a single frame is below the 0.01s resolution.
	tasks := Plan("v", []types.FrameInterval{{Start: 0, End: 1}, {Start: 3000, End: 3001}}, pick, 1000)
	assert.False(t, Plan("v", []types.FrameInterval{{Start: 0, End: 1}}, pick, 30)[0].Degenerate())
	assert.True(t, tasks[0].Degenerate())
	assert.True(t, tasks[1].Degenerate())
}

func TestOutputPath(t *testing.T) {
	task := types.ClipTask{VideoID: "v1", Index: 2, Class: types.Class{ID: 1, Label: "return"}}
	assert.Equal(t, filepath.Join("out", "v1_1_return_2.mp4"), OutputPath("out", task, "mp4", false))
	assert.Equal(t, filepath.Join("out", "1_return", "v1_1_return_2.mp4"), OutputPath("out", task, ".mp4", true))
}

func TestSourcePath(t *testing.T) {
	assert.Equal(t, filepath.Join("videos", "1_1_crop.mp4"), SourcePath("videos", "{video}_crop.mp4", "1_1"))
}

func TestOutputDir(t *testing.T) {
	c := types.Class{ID: 0, Label: "pick"}
	assert.Equal(t, "out", OutputDir("out", c, false))
	assert.Equal(t, filepath.Join("out", "0_pick"), OutputDir("out", c, true))
}
