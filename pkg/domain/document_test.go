package domain

import (
	"errors"
	"testing"
)

func TestRange_Validate(t *testing.T) {
	tests := []struct {
		name    string
		r       Range
		length  int
		wantErr bool
	}{
		{name: "Full", r: Full(5), length: 5},
		{name: "Empty Document", r: Full(0), length: 0},
		{name: "Insert At End", r: At(5), length: 5},
		{name: "Negative Start", r: Range{Start: -1, End: 2}, length: 5, wantErr: true},
		{name: "Inverted", r: Range{Start: 3, End: 2}, length: 5, wantErr: true},
		{name: "Past End", r: At(6), length: 5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate(tt.length)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRange) {
					t.Errorf("expected ErrInvalidRange, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSplice(t *testing.T) {
	tests := []struct {
		name string
		in   string
		r    Range
		text string
		want string
	}{
		{name: "Clear", in: "x=1", r: Full(3), text: "", want: ""},
		{name: "Append", in: "x", r: At(1), text: "=", want: "x="},
		{name: "Middle", in: "x1", r: Range{Start: 1, End: 1}, text: "=", want: "x=1"},
		{name: "Replace", in: "x=1", r: Range{Start: 2, End: 3}, text: "2", want: "x=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Splice(tt.in, tt.r, tt.text); got != tt.want {
				t.Errorf("Splice() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestImage_DataURL(t *testing.T) {
	img := Image{Name: "a.png", ContentType: "image/png", Data: []byte("hi")}
	if got, want := img.DataURL(), "data:image/png;base64,aGk="; got != want {
		t.Errorf("DataURL() = %q, want %q", got, want)
	}

	anon := Image{Data: []byte("hi")}
	if got, want := anon.DataURL(), "data:application/octet-stream;base64,aGk="; got != want {
		t.Errorf("DataURL() = %q, want %q", got, want)
	}
}
