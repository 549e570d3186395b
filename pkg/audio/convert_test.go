package audio_test

import (
	"errors"
	"math"
	"testing"

	"github.com/MrWong99/concatsynth/pkg/audio"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-6
}

func TestFormat_String(t *testing.T) {
	tests := []struct {
		f    audio.Format
		want string
	}{
		{audio.Format{SampleRate: 16000, Channels: 1}, "16000Hz mono"},
		{audio.Format{SampleRate: 48000, Channels: 2}, "48000Hz stereo"},
		{audio.Format{SampleRate: 44100, Channels: 6}, "44100Hz 6ch"},
	}
	for _, tt := range tests {
		if got := tt.f.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDownmix(t *testing.T) {
	// Two stereo frames: L=0.5,R=0.25 and L=-0.5,R=-0.25
	got := audio.Downmix([]float32{0.5, 0.25, -0.5, -0.25}, 2)
	want := []float32{0.375, -0.375}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %g, want %g", i, got[i], want[i])
		}
	}
}

func TestDownmix_PartialFrame(t *testing.T) {
	got := audio.Downmix([]float32{0.5, 0.5, 0.5, 0.5, 0.9}, 2)
	if len(got) != 2 {
		t.Fatalf("expected trailing sample to be dropped, got %d samples", len(got))
	}
}

func TestDownmix_Mono(t *testing.T) {
	in := []float32{0.1, 0.2}
	out := audio.Downmix(in, 1)
	if &out[0] != &in[0] {
		t.Error("mono input should be returned unchanged")
	}
}

func TestResample_SameRate(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := audio.Resample(in, 16000, 16000)
	if len(out) != len(in) || &out[0] != &in[0] {
		t.Error("expected input returned unchanged for matching rates")
	}
}

func TestResample_Upsample(t *testing.T) {
	// 2 samples at 16kHz → 6 samples at 48kHz (3x)
	got := audio.Resample([]float32{0.25, 0.5}, 16000, 48000)
	if len(got) != 6 {
		t.Fatalf("expected 6 samples, got %d", len(got))
	}
	if got[0] != 0.25 {
		t.Errorf("first sample: got %g, want 0.25", got[0])
	}
	for i := 1; i < 3; i++ {
		if got[i] <= got[i-1] {
			t.Errorf("interpolated ramp not increasing at %d: %v", i, got)
		}
	}
	if last := got[len(got)-1]; !approx(last, 0.5) {
		t.Errorf("last sample: got %g, want 0.5", last)
	}
}

func TestResample_Downsample(t *testing.T) {
	// 6 samples at 48kHz → 2 samples at 16kHz (1/3x)
	got := audio.Resample([]float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}, 48000, 16000)
	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
	if !approx(got[0], 0.1) || !approx(got[1], 0.4) {
		t.Errorf("got %v, want [0.1 0.4]", got)
	}
}

func TestResample_ZeroRate(t *testing.T) {
	in := []float32{0.1, 0.2}
	for _, rates := range [][2]int{{0, 48000}, {48000, 0}, {-1, 48000}} {
		if out := audio.Resample(in, rates[0], rates[1]); len(out) != len(in) {
			t.Errorf("Resample(%d, %d): expected unchanged output, got len %d", rates[0], rates[1], len(out))
		}
	}
}

func TestConverter_NoOp(t *testing.T) {
	conv := audio.Converter{Target: audio.Format{SampleRate: 16000, Channels: 1}}
	in := []float32{0.1, 0.2}
	out, err := conv.Convert(in, audio.Format{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	// Same slice, compared by pointer.
	if &out[0] != &in[0] {
		t.Error("expected same slice (zero allocation) for matching format")
	}
}

func TestConverter_FullConversion(t *testing.T) {
	// 48000 Hz stereo → 16000 Hz mono
	conv := audio.Converter{Target: audio.Format{SampleRate: 16000, Channels: 1}}
	in := make([]float32, 2*4800)
	for i := range in {
		in[i] = 0.5
	}
	out, err := conv.Convert(in, audio.Format{SampleRate: 48000, Channels: 2})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(out) != 1600 {
		t.Fatalf("expected 1600 samples (0.1 s at 16kHz), got %d", len(out))
	}
	for i, s := range out {
		if !approx(s, 0.5) {
			t.Fatalf("sample %d = %g, want 0.5", i, s)
		}
	}
}

func TestConverter_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target audio.Format
		from   audio.Format
		n      int
	}{
		{"stereo target", audio.Format{SampleRate: 16000, Channels: 2}, audio.Format{SampleRate: 16000, Channels: 2}, 4},
		{"zero source rate", audio.Format{SampleRate: 16000, Channels: 1}, audio.Format{SampleRate: 0, Channels: 1}, 4},
		{"zero target rate", audio.Format{SampleRate: 0, Channels: 1}, audio.Format{SampleRate: 16000, Channels: 1}, 4},
		{"partial frame", audio.Format{SampleRate: 16000, Channels: 1}, audio.Format{SampleRate: 16000, Channels: 2}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := audio.Converter{Target: tt.target}
			_, err := conv.Convert(make([]float32, tt.n), tt.from)
			if !errors.Is(err, audio.ErrFormat) {
				t.Errorf("err = %v, want ErrFormat", err)
			}
		})
	}
}

func TestFromPCM(t *testing.T) {
	got, err := audio.FromPCM([]int{0, 16384, -32768, 32767}, 16)
	if err != nil {
		t.Fatalf("FromPCM: %v", err)
	}
	want := []float32{0, 0.5, -1, 32767.0 / 32768.0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %g, want %g", i, got[i], want[i])
		}
	}
	if _, err := audio.FromPCM([]int{1}, 12); !errors.Is(err, audio.ErrFormat) {
		t.Errorf("12-bit err = %v, want ErrFormat", err)
	}
}

func TestToPCM_Clamping(t *testing.T) {
	got, err := audio.ToPCM([]float32{0, 0.5, -1, 1, 2, -3}, 16)
	if err != nil {
		t.Fatalf("ToPCM: %v", err)
	}
	want := []int{0, 16384, -32768, 32767, 32767, -32768}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestPCMRoundTrip24Bit(t *testing.T) {
	in := []int{0, 1 << 20, -(1 << 22), 8388607}
	f, err := audio.FromPCM(in, 24)
	if err != nil {
		t.Fatalf("FromPCM: %v", err)
	}
	out, err := audio.ToPCM(f, 24)
	if err != nil {
		t.Fatalf("ToPCM: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("sample %d: got %d, want %d", i, out[i], in[i])
		}
	}
}

func TestNormalize(t *testing.T) {
	samples := []float32{0.1, -0.2, 0.05}
	audio.Normalize(samples, 0.8)
	if p := audio.Peak(samples); !approx(p, 0.8) {
		t.Errorf("peak after Normalize = %g, want 0.8", p)
	}
	if !approx(samples[0], 0.4) || samples[1] > 0 {
		t.Errorf("relative levels not preserved: %v", samples)
	}

	silent := []float32{0, 0}
	audio.Normalize(silent, 0.8)
	if silent[0] != 0 || silent[1] != 0 {
		t.Errorf("silent input changed: %v", silent)
	}
}
