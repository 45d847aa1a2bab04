// Package km implements the KM (key-match) pipeline module: RCP recipes,
// CAM exact-match banks, and the TCAM ternary-match cache with its
// dirty-bit discipline (spec.md §4.7/§4.8, invariant 6). A 64-bit
// xxhash fingerprint of each row backs the Equal fast path before falling
// back to a full word compare, the way the teacher's dependency set
// reaches for xxhash for exactly this kind of cheap equality pre-check.
package km

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/nxcore/roc/pipeline/record"
	"github.com/nxcore/roc/rocerr"
)

// tcamWords is a 3-word ternary value (spec.md §4.8 "3-word ternary
// value") plus its matching mask word, stored interleaved: [value0, mask0,
// value1, mask1, value2, mask2].
const tcamWords = 6

func tcamFields() record.FieldSet {
	fs := make(record.FieldSet, tcamWords)
	for w := 0; w < tcamWords; w++ {
		fs[wordField(w)] = record.Field{Name: wordField(w), WordOff: w, BitOff: 0, Width: 64, MinVersion: 1}
	}
	return fs
}

func wordField(wordOff int) string {
	return [tcamWords]string{"w0", "w1", "w2", "w3", "w4", "w5"}[wordOff]
}

// Bank is one TCAM bank: nbRows rows of 3-word ternary entries, dirty-bit
// tracked by the embedded record.Table.
type Bank struct {
	rows *record.Table
}

func NewBank(nbRows int) *Bank {
	return &Bank{rows: record.NewTable(nbRows, tcamWords, 1, tcamFields())}
}

// fingerprint hashes a row's raw bytes, used as the COMPARE fast path: two
// rows are almost certainly unequal if their fingerprints differ, so only
// a fingerprint match falls through to the byte-exact comparison.
func (bk *Bank) fingerprint(row int) uint64 {
	b, _ := bk.rows.RowBytes(row)
	return xxhash.Sum64(b)
}

// Equal compares two rows using the fingerprint fast path before falling
// back to record.Table's exact byte comparison.
func (bk *Bank) Equal(a, b int) (bool, error) {
	if bk.fingerprint(a) != bk.fingerprint(b) {
		return false, nil
	}
	return bk.rows.Compare(a, b)
}

// Write stores (value, maskWord) at row for ternary word 0..2; writing an
// identical ternary value is a no-op (spec.md §4.8 "Writing the same value
// is a no-op"), enforced by record.Table.Set's change-detection.
func (bk *Bank) Write(row, word int, value, maskWord uint64) error {
	if word < 0 || word > 2 {
		return rocerr.ErrWordOffTooLarge
	}
	if err := bk.rows.Set(wordField(word*2), row, value); err != nil {
		return err
	}
	return bk.rows.Set(wordField(word*2+1), row, maskWord)
}

// Dirty reports whether row has been written since the last Flush.
func (bk *Bank) Dirty(row int) bool { return bk.rows.Dirty(row) }

// Flush commits dirty rows to hardware via commit and clears their dirty
// bits (spec.md §4.8 "flush(bank, count) walks dirty rows").
func (bk *Bank) Flush(start, count int, commit func(row int, raw []uint64) error) error {
	return bk.rows.Flush(start, count, commit)
}

// BankReset fills every row with pattern and marks every row dirty
// regardless of equality (spec.md §4.8 BANK_RESET).
func (bk *Bank) BankReset(pattern [tcamWords]uint64) {
	bk.rows.BankReset(pattern[:])
}

// Recipe is one RCP entry: nb_categories recipes, each selecting the
// QW0/QW4/DW8/DW10/SWX dynamic+offset+selector extraction and the 12-word
// A mask / 6-word B mask pairing used to compose the search key (spec.md
// §4.7). Represented as a plain record.Table of raw words since the exact
// field layout is silicon-specific and this module only needs get/set/
// flush semantics, not bit-level decode.
type Recipe struct {
	rows *record.Table
}

const recipeWords = 18 // 12-word A mask + 6-word B mask

func NewRecipe(nbCategories int) *Recipe {
	fs := make(record.FieldSet, recipeWords)
	for w := 0; w < recipeWords; w++ {
		fs[wordField6(w)] = record.Field{Name: wordField6(w), WordOff: w, BitOff: 0, Width: 64, MinVersion: 1}
	}
	return &Recipe{rows: record.NewTable(nbCategories, recipeWords, 1, fs)}
}

func wordField6(w int) string {
	return "rw" + strconv.Itoa(w)
}

func (r *Recipe) SetWord(category, word int, value uint64) error {
	return r.rows.Set(wordField6(word), category, value)
}

func (r *Recipe) GetWord(category, word int) (uint64, error) {
	return r.rows.Get(wordField6(word), category)
}

func (r *Recipe) Flush(start, count int, commit func(idx int, row []uint64) error) error {
	return r.rows.Flush(start, count, commit)
}
