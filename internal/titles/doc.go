// Package titles canonicalizes game titles and scores how likely two titles
// name the same game.
//
// Normalize lower-cases, folds diacritics, strips punctuation, converts number
// words and roman numerals to digits and drops stop words. Score combines a
// base-title comparison (60%), a sequel-number gate (25%) and overall edit
// similarity (15%) into an integer between 0 and 100.
package titles
