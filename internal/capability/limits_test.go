package capability

import (
	"errors"
	"testing"
)

func TestCheckIndex(t *testing.T) {
	tests := []struct {
		name       string
		numOptions int
		index      int
		wantErr    bool
	}{
		{"first option", 3, 0, false},
		{"last option", 3, 2, false},
		{"one past end", 3, 3, true},
		{"negative", 3, -1, true},
		{"empty option set", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckIndex(tt.numOptions, tt.index)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckIndex(%d, %d) error = %v, wantErr %v",
					tt.numOptions, tt.index, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPosition) {
				t.Errorf("error should wrap ErrInvalidPosition, got %v", err)
			}
		})
	}
}

func TestCheckLimits(t *testing.T) {
	tests := []struct {
		name    string
		lower   float64
		upper   float64
		value   float64
		wantErr bool
	}{
		{"within limits", 0.0, 10.0, 5.0, false},
		{"at lower limit", 0.0, 10.0, 0.0, false},
		{"at upper limit", 0.0, 10.0, 10.0, false},
		{"above upper", 0.0, 10.0, 15.0, true},
		{"below lower", 0.0, 10.0, -0.1, true},
		{"negative range", -90.0, 90.0, -45.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckLimits(tt.lower, tt.upper, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckLimits(%g, %g, %g) error = %v, wantErr %v",
					tt.lower, tt.upper, tt.value, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPosition) {
				t.Errorf("error should wrap ErrInvalidPosition, got %v", err)
			}
		})
	}
}

func TestReadingScalar(t *testing.T) {
	scalar := Reading{Detector: "photodiode", Values: []float64{4.2}}
	if v, ok := scalar.Scalar(); !ok || v != 4.2 {
		t.Errorf("Scalar() = (%g, %v), want (4.2, true)", v, ok)
	}

	vector := Reading{Detector: "spectrum", Shape: []int{3}, Values: []float64{1, 2, 3}}
	if _, ok := vector.Scalar(); ok {
		t.Error("Scalar() on 1-D reading should return ok=false")
	}
}

func TestReadingSize(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
		want  int
	}{
		{"scalar", nil, 1},
		{"vector", []int{512}, 512},
		{"image", []int{4, 8}, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Reading{Shape: tt.shape}
			if got := r.Size(); got != tt.want {
				t.Errorf("Size() = %d, want %d", got, tt.want)
			}
		})
	}
}
