package sd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func runScript(t *testing.T, cfg Config, src string) (*Processor, string, error) {
	t.Helper()
	var out bytes.Buffer
	cfg.Output = &out
	p := NewProcessor(cfg)
	err := p.Exec(context.Background(), strings.NewReader(src))
	return p, out.String(), err
}

func mustRun(t *testing.T, src string) (*Processor, string) {
	t.Helper()
	p, out, err := runScript(t, Config{}, src)
	if err != nil {
		t.Fatalf("run %q: %v", src, err)
	}
	return p, out
}

func variable(t *testing.T, p *Processor, name string) Value {
	t.Helper()
	v, err := p.Scopes().Get(0, name)
	if err != nil {
		t.Fatalf("get %s: %v", name, err)
	}
	return v
}

func expectKind(t *testing.T, err error, kind ErrorKind) *RuntimeError {
	t.Helper()
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected RuntimeError, got %T (%v)", err, err)
	}
	if re.Kind != kind {
		t.Fatalf("expected %s, got %s", kind, re.Kind)
	}
	return re
}

func TestAssignmentSetsSore(t *testing.T) {
	p, _ := mustRun(t, "ほげは42。")
	if v := variable(t, p, "ほげ"); v.Int() != 42 {
		t.Fatalf("unexpected value: %v", v)
	}
	if p.Sore().Int() != 42 {
		t.Fatalf("unexpected SORE: %v", p.Sore())
	}
}

func TestDivisionByZeroSuppressed(t *testing.T) {
	p, _, err := runScript(t, Config{}, "1を0で割る？\nほげは1。")
	if err != nil {
		t.Fatalf("expected suppressed run to complete, got %v", err)
	}
	if p.Are().Kind() != KindError || p.Are().Err().Kind != ErrDivisionByZero {
		t.Fatalf("unexpected ARE: %v", p.Are())
	}
	if v := variable(t, p, "ほげ"); v.Int() != 1 {
		t.Fatalf("statement after suppression did not run")
	}

	ok, _ := mustRun(t, "1を1で割る。")
	if ok.Sore().Kind() != KindInt || ok.Sore().Int() != 1 {
		t.Fatalf("unexpected quotient: %v", ok.Sore())
	}
	if !ok.Are().IsNull() {
		t.Fatalf("successful division touched ARE: %v", ok.Are())
	}
}

func TestDivisionByZeroFatal(t *testing.T) {
	_, _, err := runScript(t, Config{}, "ほげは1。\n1を0で割る。\nほげは2。")
	re := expectKind(t, err, ErrDivisionByZero)
	if re.Line != 2 {
		t.Fatalf("expected line 2, got %d", re.Line)
	}
}

func TestSuppressionDuality(t *testing.T) {
	cases := []struct {
		name string
		stmt string
		kind ErrorKind
	}{
		{"undefined variable", "ほげを言う", ErrUndefinedVariable},
		{"undefined function", "1を謎る", ErrUndefinedFunction},
		{"type mismatch", "「あ」に1を足す", ErrTypeMismatch},
		{"subtraction mismatch", "1から「あ」を引く", ErrTypeMismatch},
		{"division by zero", "1を0で割る", ErrDivisionByZero},
		{"modulo by zero", "1を0で割った余り", ErrDivisionByZero},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, _, err := runScript(t, Config{}, tc.stmt+"？\n終了は真。")
			if err != nil {
				t.Fatalf("suppressed: unexpected error %v", err)
			}
			if p.Sore().Kind() != KindError || p.Are().Err().Kind != tc.kind {
				t.Fatalf("suppressed: unexpected ARE %v", p.Are())
			}
			if v := variable(t, p, "終了"); !v.Bool() {
				t.Fatalf("suppressed: run stopped early")
			}

			p, _, err = runScript(t, Config{}, tc.stmt+"。\n終了は真。")
			expectKind(t, err, tc.kind)
			if _, getErr := p.Scopes().Get(0, "終了"); getErr == nil {
				t.Fatalf("fatal: run continued after the error")
			}
		})
	}
}

func TestStructuralErrorsIgnoreSuppression(t *testing.T) {
	cases := []struct {
		name string
		src  string
		kind ErrorKind
	}{
		{"builtin arity", "1と2を言う？", ErrArity},
		{"function arity", "数値を倍増するとは\n数値に2を掛ける。\n終わり。\n1と2を倍増する？", ErrArity},
		{"read only length", "リストは1、2。\nリストの長さは5？", ErrReadOnly},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runScript(t, Config{}, tc.src)
			expectKind(t, err, tc.kind)
		})
	}
}

func TestLexicalErrorPreventsExecution(t *testing.T) {
	_, out, err := runScript(t, Config{}, "「実行」を言う。\nほげは「未完")
	var le *LexError
	if !errors.As(err, &le) || le.Kind != LexUnterminatedString {
		t.Fatalf("expected unterminated string, got %v", err)
	}
	if out != "" {
		t.Fatalf("statement ran before lexing failed: %q", out)
	}
}

func TestSayAndInterpolation(t *testing.T) {
	_, out := mustRun(t, "ほげは42。\n「値は【ほげ】です」を言う。\n「【1を2で割る】」を言う。")
	if out != "値は42です\n0.5\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestFullWidthNumeralsCompareEqual(t *testing.T) {
	_, out := mustRun(t, "ほげは４２。\nもしほげが42ならば\n「同じ」を言う。\n終わり。")
	if out != "同じ\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestIfChain(t *testing.T) {
	src := `もしほげが1ならば
  「一」を言う。
もしくはほげが2ならば
  「二」を言う。
違えば
  「他」を言う。
終わり。`
	for value, want := range map[string]string{"1": "一\n", "2": "二\n", "3": "他\n"} {
		_, out := mustRun(t, "ほげは"+value+"。\n"+src)
		if out != want {
			t.Fatalf("ほげ=%s: unexpected output %q", value, out)
		}
	}
}

func TestIfBodyWritesThroughTransparentScope(t *testing.T) {
	p, _ := mustRun(t, "ほげは1。\nもしほげならば\nほげは2。\n終わり。")
	if v := variable(t, p, "ほげ"); v.Int() != 2 {
		t.Fatalf("expected write through to root, got %v", v)
	}
	if p.Scopes().Len() != 1 {
		t.Fatalf("block scope leaked")
	}
}

func TestComparisons(t *testing.T) {
	cases := []struct {
		cond string
		want bool
	}{
		{"3が2より大きければ", true},
		{"3が2より小さければ", false},
		{"2が2以上ならば", true},
		{"2が1.5以下ならば", false},
		{"「あ」が「い」より小さければ", true},
		{"「あ」が「あ」でなければ", false},
		{"偽でなければ", true},
	}
	for _, tc := range cases {
		p, _ := mustRun(t, "結果は偽。\nもし"+tc.cond+"\n結果は真。\n終わり。")
		if got := variable(t, p, "結果").Bool(); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.cond, tc.want, got)
		}
	}
}

func TestCountedLoopSetsSore(t *testing.T) {
	_, out := mustRun(t, "1から3まで繰り返す。\nそれを言う。\n終わり。")
	if out != "1\n2\n3\n" {
		t.Fatalf("unexpected output: %q", out)
	}

	p, _ := mustRun(t, "合計は0。\n1から5まで繰り返す。\n合計は合計にそれを足す。\n終わり。")
	if v := variable(t, p, "合計"); v.Int() != 15 {
		t.Fatalf("unexpected sum: %v", v)
	}
}

func TestCountedLoopEndsAtMaxInt(t *testing.T) {
	_, out, err := runScript(t, Config{StepQuota: 20}, "9223372036854775807から9223372036854775807まで繰り返す。\n1を言う。\n終わり。")
	if err != nil {
		t.Fatalf("loop did not stop at its bound: %v", err)
	}
	if out != "1\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestInterpolationWithQuotedCloser(t *testing.T) {
	_, out := mustRun(t, "「a【「x】y」】b」を言う。")
	if out != "ax】yb\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestLoopBreakAndNext(t *testing.T) {
	p, _ := mustRun(t, `カウンタは0。
繰り返す。
  カウンタはカウンタに1を足す。
  もしカウンタが3以上ならば
    抜ける。
  終わり。
終わり。`)
	if v := variable(t, p, "カウンタ"); v.Int() != 3 {
		t.Fatalf("unexpected counter: %v", v)
	}

	_, out := mustRun(t, `1から5まで繰り返す。
  もしそれを2で割った余りが0ならば
    続ける。
  終わり。
  それを言う。
終わり。`)
	if out != "1\n3\n5\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestControlOutsideContext(t *testing.T) {
	for _, src := range []string{"抜ける。", "続ける。", "1を返す。", "終わり。", "違えば\n終わり。"} {
		_, _, err := runScript(t, Config{}, src)
		expectKind(t, err, ErrSyntax)
	}
	_, _, err := runScript(t, Config{}, "もし真ならば\n「a」を言う。")
	expectKind(t, err, ErrSyntax)
}

func TestFunctionBindsByParticle(t *testing.T) {
	p, _ := mustRun(t, `AからBを差し引くとは
  AからBを引く。
終わり。
結果は3を10から差し引く。`)
	if v := variable(t, p, "結果"); v.Int() != 7 {
		t.Fatalf("unexpected result: %v", v)
	}
}

func TestRecursiveFunction(t *testing.T) {
	p, _ := mustRun(t, `数値を階乗するとは
  もし数値が1以下ならば
    1を返す。
  終わり。
  数値から1を引く。
  それを階乗する。
  それに数値を掛ける。
終わり。
5を階乗する。`)
	if p.Sore().Int() != 120 {
		t.Fatalf("unexpected factorial: %v", p.Sore())
	}
}

func TestFunctionFrameIsIsolated(t *testing.T) {
	p, out := mustRun(t, `ほげは1。
変更するとは
  ほげは2。
  ほげを言う。
終わり。
変更する。
変更する。
ほげを言う。`)
	if out != "2\n2\n1\n" {
		t.Fatalf("unexpected output: %q", out)
	}
	if p.Scopes().Len() != 1 {
		t.Fatalf("frame leaked")
	}
}

func TestRecursionLimit(t *testing.T) {
	_, _, err := runScript(t, Config{RecursionLimit: 3}, "無限とは\n無限。\n終わり。\n無限？")
	expectKind(t, err, ErrRecursion)
}

func TestStepQuota(t *testing.T) {
	_, _, err := runScript(t, Config{StepQuota: 20}, "繰り返す。\n1。\n終わり。")
	expectKind(t, err, ErrStepQuota)
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewProcessor(Config{})
	err := p.Exec(ctx, strings.NewReader("ほげは1。"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestArrays(t *testing.T) {
	_, out := mustRun(t, `リストは10、20、30。
リストの長さを言う。
リストの1つ目を言う。
リストの9番目を言う。
辞書の「名前」は「太郎」。
辞書の「名前」を言う。
鍵は「名前」。
辞書の鍵を言う。
「あいう」の長さを言う。`)
	if out != "3\n20\n無\n太郎\n太郎\n3\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestArraysCopyOnAssignment(t *testing.T) {
	p, _ := mustRun(t, "甲は1、2。\n乙は甲。\n乙の0番目は9。")
	if got := variable(t, p, "甲").String(); got != "[1, 2]" {
		t.Fatalf("assignment shared the array: %s", got)
	}
	if got := variable(t, p, "乙").String(); got != "[9, 2]" {
		t.Fatalf("unexpected copy: %s", got)
	}
}

func TestPushAndJoin(t *testing.T) {
	p, out := mustRun(t, "リストは配列。\nリストはリストに5を押し込む。\n「a」と1と真を繋げる。\nそれを言う。")
	if got := variable(t, p, "リスト").String(); got != "[5]" {
		t.Fatalf("unexpected array: %s", got)
	}
	if out != "a1真\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestBareNameReadsVariable(t *testing.T) {
	p, _ := mustRun(t, "ほげは5。\nほげ。")
	if p.Sore().Int() != 5 {
		t.Fatalf("unexpected SORE: %v", p.Sore())
	}
}

func TestTraceEvents(t *testing.T) {
	var kinds []EventKind
	var last Event
	tracer := TracerFunc(func(e Event) {
		kinds = append(kinds, e.Kind)
		last = e
	})
	_, _, err := runScript(t, Config{Tracer: tracer}, "ほげは1。\n1を0で割る？")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []EventKind{
		EventTokenProduced, EventTokenProduced, EventTokenProduced,
		EventTokenProduced, EventTokenProduced, EventTokenProduced, EventTokenProduced, EventTokenProduced, EventTokenProduced,
		EventStatementAttempted, EventStatementCompleted,
		EventStatementAttempted, EventStatementSuppressed,
	}
	if len(kinds) != len(want) {
		t.Fatalf("unexpected events: %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], kinds[i])
		}
	}
	if last.Err == nil || last.Err.Kind != ErrDivisionByZero || last.Line != 2 {
		t.Fatalf("unexpected suppression event: %+v", last)
	}
}

func TestRunStreamsFromFeed(t *testing.T) {
	var out bytes.Buffer
	p := NewProcessor(Config{Output: &out})
	feed := NewFeed()
	done := make(chan error, 1)
	go func() {
		done <- p.Run(context.Background(), NewLexer(NewReader(feed)))
	}()

	waitIdle := func() {
		t.Helper()
		select {
		case <-feed.Idle():
		case <-time.After(2 * time.Second):
			t.Fatalf("processor never waited for input")
		}
	}

	waitIdle()
	feed.Feed("もし真ならば\n")
	waitIdle()
	if p.Depth() != 1 {
		t.Fatalf("expected one open block, got %d", p.Depth())
	}
	feed.Feed("「中」を言う。\n終わり。\n")
	waitIdle()
	if p.Depth() != 0 {
		t.Fatalf("expected closed block, got %d", p.Depth())
	}
	feed.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not finish")
	}
	if out.String() != "中\n" {
		t.Fatalf("unexpected output: %q", out.String())
	}
}
