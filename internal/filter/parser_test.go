package filter

import (
	"reflect"
	"testing"
	"time"
)

func TestParseYearRange(t *testing.T) {
	tests := []struct {
		input    string
		wantFrom int
		wantTo   int
		wantErr  bool
	}{
		{input: "2021", wantFrom: 2021, wantTo: 2021},
		{input: "2019-2021", wantFrom: 2019, wantTo: 2021},
		{input: " 2019 - 2021 ", wantFrom: 2019, wantTo: 2021},
		{input: "2019-", wantFrom: 2019, wantTo: 0},
		{input: "-2005", wantFrom: 0, wantTo: 2005},
		{input: "", wantErr: true},
		{input: "-", wantErr: true},
		{input: "2021-2019", wantErr: true},
		{input: "1850", wantErr: true},
		{input: "twenty", wantErr: true},
		{input: "20192021", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			from, to, err := ParseYearRange(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseYearRange(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if from != tt.wantFrom || to != tt.wantTo {
				t.Errorf("ParseYearRange(%q) = %d, %d, want %d, %d", tt.input, from, to, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

func TestSeasons(t *testing.T) {
	if got := Seasons(2019, 2021); !reflect.DeepEqual(got, []int{2019, 2020, 2021}) {
		t.Errorf("Seasons(2019, 2021) = %v", got)
	}
	got := Seasons(2020, 0)
	if len(got) == 0 || got[len(got)-1] != time.Now().Year() {
		t.Errorf("Seasons(2020, 0) should run to the current year, got %v", got)
	}
	if got := Seasons(0, 1898); !reflect.DeepEqual(got, []int{1897, 1898}) {
		t.Errorf("Seasons(0, 1898) = %v", got)
	}
}

func TestParseRounds(t *testing.T) {
	tests := []struct {
		input   string
		want    []string
		wantErr bool
	}{
		{input: "5", want: []string{"5"}},
		{input: "1-3,QF, GF", want: []string{"1", "2", "3", "QF", "GF"}},
		{input: "", want: nil},
		{input: "3-1", wantErr: true},
		{input: "a-b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRounds(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRounds(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseRounds(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2021-04-24")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	end := EndOfDay(d)
	if end.Hour() != 23 || end.Day() != 24 {
		t.Errorf("EndOfDay() = %v", end)
	}
	if _, err := ParseDate("24/04/2021"); err == nil {
		t.Error("ParseDate() should reject non-ISO dates")
	}
}
