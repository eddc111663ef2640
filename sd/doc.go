// Package sd implements a Japanese natural-language scripting language.
// Statements read as ordinary sentences ending in 。 and are built from
// particles that mark the role of each word:
//   - Assignment via `名前は値。` and keyed writes via `名前の鍵は値。`.
//   - Calls where particles bind arguments, e.g. `1に2を足す。`.
//   - Conditionals `もしAがBならば … もしくは … 違えば … 終わり。`.
//   - Counted and open loops `1から3まで繰り返す。 … 終わり。` with 抜ける and 続ける.
//   - Function definitions `AとBを合計するとは … 終わり。` with 返す.
//   - String interpolation with 【式】 and comments in （） or ※ to end of line.
//
// Every statement records its value in それ (SORE). A statement ending in ？
// instead of 。 suppresses recoverable faults: the fault becomes an error
// value in both それ and あれ (ARE) and execution continues. Structural
// faults such as wrong argument counts stay fatal.
//
// The Processor consumes tokens as the Lexer produces them, so a script can
// be fed incrementally through a Feed. Tracing hooks report every token and
// statement to an optional Tracer.
package sd
