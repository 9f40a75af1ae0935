package css_lexer

import (
	"fmt"
	"testing"

	"github.com/evanw/postcss/internal/logger"
	"github.com/evanw/postcss/internal/test"
)

func lexTokens(contents string) ([]Token, []logger.Msg) {
	log := logger.NewDeferLog()
	tokens := Tokenize(log, test.SourceForTest(contents))
	return tokens, log.Done()
}

func kindsOf(contents string) string {
	tokens, _ := lexTokens(contents)
	text := ""
	for _, token := range tokens {
		if token.Kind == TEndOfFile {
			break
		}
		if text != "" {
			text += " "
		}
		text += token.Kind.String()
	}
	return text
}

func expectKinds(t *testing.T, contents string, expected string) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		test.AssertEqual(t, kindsOf(contents), expected)
	})
}

func TestTokenKinds(t *testing.T) {
	expectKinds(t, "", "")
	expectKinds(t, "a", "word")
	expectKinds(t, "a b", "word whitespace word")
	expectKinds(t, "@media", "@-word")
	expectKinds(t, "#id", "hash token")
	expectKinds(t, "{};:,", "\"{\" \"}\" \";\" \":\" \",\"")
	expectKinds(t, "()", "\"(\" \")\"")
	expectKinds(t, "[]", "\"[\" \"]\"")
	expectKinds(t, "/* c */", "comment")
	expectKinds(t, "'s'", "string token")
	expectKinds(t, "\"s\"", "string token")
	expectKinds(t, "-webkit-box", "word")
	expectKinds(t, "1px", "word")
	expectKinds(t, "a/b", "word delimiter word")
	expectKinds(t, "@", "delimiter")
	expectKinds(t, "#", "delimiter")
}

func TestTokenRanges(t *testing.T) {
	contents := "a { color: red }"
	tokens, msgs := lexTokens(contents)
	test.AssertEqual(t, len(msgs), 0)

	// Concatenating every token's raw bytes reproduces the input.
	joined := ""
	for _, token := range tokens {
		joined += token.Raw(contents)
	}
	test.AssertEqual(t, joined, contents)
}

func TestTokenPositions(t *testing.T) {
	check := func(contents string, index int, line int32, column int32) {
		t.Helper()
		t.Run(fmt.Sprintf("%q %d", contents, index), func(t *testing.T) {
			t.Helper()
			tokens, _ := lexTokens(contents)
			test.AssertEqual(t, tokens[index].Line, line)
			test.AssertEqual(t, tokens[index].Column, column)
		})
	}

	check("a b", 2, 1, 3)
	check("a\nb", 2, 2, 1)
	check("a\r\nb", 2, 2, 1)
	check("a\rb", 2, 2, 1)
	check("a\n\nb", 2, 3, 1)
	check("/*\n*/b", 1, 2, 3)
}

func TestTokenErrors(t *testing.T) {
	expectError := func(contents string, expected string) {
		t.Helper()
		t.Run(contents, func(t *testing.T) {
			t.Helper()
			_, msgs := lexTokens(contents)
			if len(msgs) == 0 {
				t.Fatalf("expected an error for %q", contents)
			}
			test.AssertEqual(t, msgs[0].String(), expected)
		})
	}

	expectError("'abc", "<stdin>:1:1: error: Unclosed quote\n> 1 | 'abc\n    | ^")
	expectError("a /* b", "<stdin>:1:3: error: Unclosed comment\n> 1 | a /* b\n    |   ^")
	expectError("a (b", "<stdin>:1:3: error: Unclosed bracket\n> 1 | a (b\n    |   ^")

	_, msgs := lexTokens("a (b)")
	test.AssertEqual(t, len(msgs), 0)
}
