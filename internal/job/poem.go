package job

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
)

// Builtin job kind names.
const (
	KindPoem = "poem"
	KindEcho = "echo"
)

// Bounds for the number of sentences in a generated poem.
const (
	minSentences = 1
	maxSentences = 10
)

// poemLines is the bank the poem kind draws sentences from.
var poemLines = []string{
	"The kiln holds steady while the glaze runs bright.",
	"Each vessel waits its turn inside the fire.",
	"Heat does the work that patience set in motion.",
	"What entered soft comes out with its own ring.",
	"The potter reads the cone and not the clock.",
	"Ash settles where the flame has been and gone.",
	"A hairline crack remembers every hurry.",
	"The last warmth leaves the bricks long after dark.",
	"Morning opens the door on finished things.",
	"Nothing fired ever returns to clay.",
}

type poemInput struct {
	SentenceCount *int `json:"sentence_count"`
}

type poemResult struct {
	SentenceCount int    `json:"sentence_count"`
	Poem          string `json:"poem"`
}

// Poem returns the builtin poem body: it writes a poem of sentence_count
// lines, picking a random count between 1 and 10 when the input omits one.
// An out-of-range count fails the execution.
func Poem() Body {
	return func(_ context.Context, _ string, input json.RawMessage) (json.RawMessage, error) {
		var in poemInput
		if len(input) > 0 {
			if err := json.Unmarshal(input, &in); err != nil {
				return nil, fmt.Errorf("decode poem input: %w", err)
			}
		}

		count := minSentences + rand.IntN(maxSentences-minSentences+1)
		if in.SentenceCount != nil {
			count = *in.SentenceCount
			if count < minSentences || count > maxSentences {
				return nil, fmt.Errorf("sentence_count must be between %d and %d, got %d", minSentences, maxSentences, count)
			}
		}

		lines := make([]string, count)
		for i := range lines {
			lines[i] = poemLines[i%len(poemLines)]
		}

		return json.Marshal(poemResult{
			SentenceCount: count,
			Poem:          strings.Join(lines, "\n"),
		})
	}
}

// Echo returns the builtin echo body: it replies with its input verbatim.
// Useful as a smoke-test kind for exercising the submit/poll path end to end.
func Echo() Body {
	return func(_ context.Context, _ string, input json.RawMessage) (json.RawMessage, error) {
		if len(input) == 0 {
			return json.RawMessage("null"), nil
		}
		return input, nil
	}
}

// RegisterBuiltins installs the job kinds that ship with the server.
func RegisterBuiltins(r *Registry) {
	r.Register(KindPoem, "composes a short poem, sentence_count lines long", Poem())
	r.Register(KindEcho, "returns its input verbatim", Echo())
}
