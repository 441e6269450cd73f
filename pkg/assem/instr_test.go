package assem

import (
	"bytes"
	"testing"

	"github.com/ghazariann/SJTU-compilers/pkg/temp"
)

func TestDefUse(t *testing.T) {
	tests := []struct {
		name    string
		instr   Instr
		wantDef []temp.Temp
		wantUse []temp.Temp
	}{
		{
			name:  "label",
			instr: NewLabel("L1"),
		},
		{
			name:    "move",
			instr:   NewMove("movq `s0, `d0", 2, 1),
			wantDef: []temp.Temp{2},
			wantUse: []temp.Temp{1},
		},
		{
			name:    "oper",
			instr:   &Oper{Assem: "addq `s0, `d0", Dst: []temp.Temp{3}, Src: []temp.Temp{1, 3}},
			wantDef: []temp.Temp{3},
			wantUse: []temp.Temp{1, 3},
		},
		{
			name:    "jump",
			instr:   &Oper{Assem: "jmp `j0", Jumps: []temp.Label{"L1"}},
			wantDef: nil,
			wantUse: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.instr.Def(); !sameTemps(got, tt.wantDef) {
				t.Errorf("Def() = %v, want %v", got, tt.wantDef)
			}
			if got := tt.instr.Use(); !sameTemps(got, tt.wantUse) {
				t.Errorf("Use() = %v, want %v", got, tt.wantUse)
			}
		})
	}
}

func sameTemps(a, b []temp.Temp) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestUnconditionalJump(t *testing.T) {
	tests := []struct {
		assem string
		jumps []temp.Label
		want  bool
	}{
		{"jmp `j0", []temp.Label{"L1"}, true},
		{"  jmp `j0", []temp.Label{"L1"}, true},
		{"jne `j0", []temp.Label{"L1"}, false},
		{"jmp `j0", nil, false},
		{"call jmpfoo", nil, false},
	}
	for _, tt := range tests {
		o := &Oper{Assem: tt.assem, Jumps: tt.jumps}
		if got := o.IsUnconditionalJump(); got != tt.want {
			t.Errorf("%q with jumps %v: IsUnconditionalJump() = %v, want %v", tt.assem, tt.jumps, got, tt.want)
		}
	}
}

func TestMoveEndpointsPanicsOnBadShape(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for a move with two sources")
		}
	}()
	m := &Move{Assem: "movq `s0, `d0", Dst: []temp.Temp{1}, Src: []temp.Temp{2, 3}}
	m.Endpoints()
}

func TestReplace(t *testing.T) {
	ts := []temp.Temp{1, 2, 1}
	if !Replace(ts, 1, 9) {
		t.Fatal("Replace should report a substitution")
	}
	if ts[0] != 9 || ts[1] != 2 || ts[2] != 9 {
		t.Errorf("Replace = %v, want [t9 t2 t9]", ts)
	}
	if Replace(ts, 5, 6) {
		t.Error("Replace should report no substitution for an absent temp")
	}
}

func TestFormat(t *testing.T) {
	names := temp.NewMap()
	names.Enter(1, "%rax")
	names.Enter(2, "%rbx")

	tests := []struct {
		instr Instr
		want  string
	}{
		{NewMove("movq `s0, `d0", 2, 1), "movq %rax, %rbx"},
		{&Oper{Assem: "addq `s1, `d0", Dst: []temp.Temp{1}, Src: []temp.Temp{1, 2}}, "addq %rbx, %rax"},
		{&Oper{Assem: "jne `j0", Jumps: []temp.Label{"L7"}}, "jne L7"},
		{&Oper{Assem: "movq $3, `d0", Dst: []temp.Temp{42}}, "movq $3, t42"},
		{&Oper{Assem: "cmpq `s3, `x0"}, "cmpq <3?>, `x0"},
		{NewLabel("L3"), "L3:"},
	}
	for _, tt := range tests {
		if got := Format(tt.instr, names); got != tt.want {
			t.Errorf("Format(%q) = %q, want %q", tt.instr.Template(), got, tt.want)
		}
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, nil)
	p.PrintProcedure("f", []Instr{
		NewLabel("L1"),
		NewMove("movq `s0, `d0", 101, 100),
	})

	want := "# procedure f\nL1:\n\tmovq t100, t101\n"
	if buf.String() != want {
		t.Errorf("printer output = %q, want %q", buf.String(), want)
	}
}
