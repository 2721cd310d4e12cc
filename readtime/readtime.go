// Package readtime estimates how long a post takes to read.
package readtime

import "strings"

// WordsPerMinute is the assumed reading rate.
const WordsPerMinute = 200

// Fragment is one piece of body text inside a Block.
type Fragment struct {
	Text string
}

// Block is a section of a post: a heading followed by body fragments.
type Block struct {
	Heading string
	Body    []Fragment
}

// Estimate is the result of a reading-time estimation.
type Estimate struct {
	Words   int
	Minutes int
}

// CountWords counts the words across headings and body fragments.
// A word is a maximal run of non-whitespace characters.
func CountWords(blocks []Block) int {
	total := 0
	for _, b := range blocks {
		total += len(strings.Fields(b.Heading))
		for _, f := range b.Body {
			total += len(strings.Fields(f.Text))
		}
	}
	return total
}

// Minutes returns ceil(words / WordsPerMinute). Zero words is zero minutes.
func Minutes(blocks []Block) int {
	return minutesFor(CountWords(blocks))
}

// Of returns both the word count and the minutes to read.
func Of(blocks []Block) Estimate {
	words := CountWords(blocks)
	return Estimate{Words: words, Minutes: minutesFor(words)}
}

func minutesFor(words int) int {
	return (words + WordsPerMinute - 1) / WordsPerMinute
}
