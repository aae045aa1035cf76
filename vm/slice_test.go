package vm

import "testing"

func TestSliceArray(t *testing.T) {
	src := ints(1, 2, 3, 4, 5)
	tests := []struct {
		name  string
		start int
		end   Bound
		want  Value
	}{
		{"middle", 1, End(4), ints(2, 3, 4)},
		{"negative end is exclusive", 0, End(-1), ints(1, 2, 3, 4)},
		{"negative start", -2, End(5), ints(4, 5)},
		{"open end", 2, Open, ints(3, 4, 5)},
		{"end past length clamps", 3, End(50), ints(4, 5)},
		{"over-negative start clamps to 0", -9, End(2), ints(1, 2)},
		{"inverted range", 4, End(1), ints()},
		{"start past length", 9, Open, ints()},
	}
	for _, tt := range tests {
		got := ArrayVal(Slice(src.Array(), tt.start, tt.end))
		if !DeepEqual(got, tt.want) {
			t.Errorf("%s: Slice(%d, %+v) = %v, want %v", tt.name, tt.start, tt.end, got, tt.want)
		}
	}
}

func TestSliceArrayReturnsFreshArray(t *testing.T) {
	src := ints(1, 2, 3)
	out := Slice(src.Array(), 0, Open)
	out.Set(0, Int(9))
	if v, _ := src.Array().At(0); v.AsInt() != 1 {
		t.Errorf("slice shares storage with source: %v", v)
	}
}

func TestStrSlice(t *testing.T) {
	const s = "Hello, World!"
	tests := []struct {
		name  string
		start int
		end   Bound
		want  string
	}{
		{"prefix", 0, End(5), "Hello"},
		{"negative end is inclusive", 7, End(-1), "World!"},
		{"negative end -2", 7, End(-2), "World"},
		{"open end", 7, Open, "World!"},
		{"negative start", -6, Open, "World!"},
		{"over-negative start", -50, End(5), "Hello"},
		{"end past length", 7, End(100), "World!"},
		{"inverted", 5, End(2), ""},
		{"over-negative end", 0, End(-50), ""},
	}
	for _, tt := range tests {
		if got := StrSlice(s, tt.start, tt.end); got != tt.want {
			t.Errorf("%s: StrSlice(%d, %+v) = %q, want %q", tt.name, tt.start, tt.end, got, tt.want)
		}
	}
}

func TestStrSliceCountsCodePoints(t *testing.T) {
	if got := StrSlice("héllo", 1, End(3)); got != "él" {
		t.Errorf("StrSlice = %q, want %q", got, "él")
	}
}

// The array and string rules differ for a negative end; both must hold.
func TestArrayAndStringEndRulesDiffer(t *testing.T) {
	arr := ArrayVal(Slice(ints(0, 1, 2, 3, 4).Array(), 1, End(-1)))
	str := StrSlice("01234", 1, End(-1))

	if !DeepEqual(arr, ints(1, 2, 3)) {
		t.Errorf("array slice = %v, want [1, 2, 3]", arr)
	}
	if str != "1234" {
		t.Errorf("string slice = %q, want %q", str, "1234")
	}
}
