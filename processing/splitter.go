package processing

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// textExtensions lists the file extensions treated as text-like. Files with
// any other extension are skipped before loading.
var textExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".java": true, ".cpp": true, ".c": true, ".h": true, ".hpp": true,
	".cs": true, ".php": true, ".rb": true, ".go": true, ".rs": true,
	".kt": true, ".swift": true, ".scala": true, ".clj": true,
	".html": true, ".css": true, ".scss": true, ".sass": true, ".less": true,
	".xml": true, ".yaml": true, ".yml": true, ".json": true, ".toml": true,
	".ini": true, ".cfg": true, ".conf": true, ".txt": true, ".md": true,
	".rst": true, ".sql": true, ".sh": true, ".bash": true, ".zsh": true,
	".ps1": true, ".bat": true, ".dockerfile": true, ".r": true,
	".matlab": true, ".m": true, ".pl": true, ".lua": true, ".vim": true,
	".el": true, ".hs": true, ".ml": true, ".fs": true, ".tex": true,
	".sol": true,
}

// IsTextFile reports whether path has a text-like extension.
func IsTextFile(path string) bool {
	return textExtensions[fileExtension(path)]
}

// fileExtension returns the lowercased extension including the dot.
func fileExtension(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(path[idx:])
}

// Syntax-aware separator sets per language family. Ordered from the
// strongest structural boundary down to single characters, so the recursive
// splitter prefers breaking at declarations over breaking mid-line.
var (
	pythonSeparators = []string{"\nclass ", "\ndef ", "\n\tdef ", "\n\n", "\n", " ", ""}

	jsSeparators = []string{
		"\nfunction ", "\nconst ", "\nlet ", "\nvar ", "\nclass ",
		"\nif ", "\nfor ", "\nwhile ", "\nswitch ", "\ncase ", "\ndefault ",
		"\n\n", "\n", " ", "",
	}

	goSeparators = []string{
		"\nfunc ", "\nvar ", "\nconst ", "\ntype ",
		"\nif ", "\nfor ", "\nswitch ", "\ncase ",
		"\n\n", "\n", " ", "",
	}

	classLangSeparators = []string{
		"\nclass ", "\npublic ", "\nprotected ", "\nprivate ", "\nstatic ",
		"\nif ", "\nfor ", "\nwhile ", "\nswitch ", "\ncase ",
		"\n\n", "\n", " ", "",
	}

	cppSeparators = []string{
		"\nclass ", "\nvoid ", "\nint ", "\nfloat ", "\ndouble ",
		"\nif ", "\nfor ", "\nwhile ", "\nswitch ", "\ncase ",
		"\n\n", "\n", " ", "",
	}

	phpSeparators = []string{
		"\nfunction ", "\nclass ", "\nif ", "\nforeach ", "\nwhile ",
		"\ndo ", "\nswitch ", "\ncase ",
		"\n\n", "\n", " ", "",
	}

	rubySeparators = []string{
		"\ndef ", "\nclass ", "\nif ", "\nunless ", "\nwhile ", "\nfor ",
		"\ndo ", "\nbegin ", "\nrescue ",
		"\n\n", "\n", " ", "",
	}

	rustSeparators = []string{
		"\nfn ", "\nconst ", "\nlet ", "\nif ", "\nwhile ", "\nfor ",
		"\nloop ", "\nmatch ",
		"\n\n", "\n", " ", "",
	}

	swiftSeparators = []string{
		"\nfunc ", "\nclass ", "\nstruct ", "\nenum ",
		"\nif ", "\nfor ", "\nwhile ", "\ndo ", "\nswitch ", "\ncase ",
		"\n\n", "\n", " ", "",
	}

	markdownSeparators = []string{
		"\n# ", "\n## ", "\n### ", "\n#### ", "\n##### ", "\n###### ",
		"```\n\n", "\n\n", "\n", " ", "",
	}

	htmlSeparators = []string{
		"<body", "<div", "<p", "<br", "<li",
		"<h1", "<h2", "<h3", "<h4", "<h5", "<h6",
		"<table", "<tr", "<td", "<section", "<article",
		"\n\n", "\n", " ", "",
	}

	latexSeparators = []string{
		"\n\\chapter{", "\n\\section{", "\n\\subsection{", "\n\\subsubsection{",
		"\n\\begin{", "\n\n", "\n", " ", "",
	}

	solSeparators = []string{
		"\npragma ", "\ncontract ", "\ninterface ", "\nlibrary ",
		"\nconstructor ", "\nfunction ", "\nevent ", "\nmodifier ",
		"\nstruct ", "\nenum ", "\nif ", "\nfor ", "\nwhile ",
		"\n\n", "\n", " ", "",
	}
)

// separatorsByExtension maps a lowercased extension (without dot) to the
// syntax-aware separator set for its language.
var separatorsByExtension = map[string][]string{
	"py":    pythonSeparators,
	"js":    jsSeparators,
	"ts":    jsSeparators,
	"jsx":   jsSeparators,
	"tsx":   jsSeparators,
	"java":  classLangSeparators,
	"cs":    classLangSeparators,
	"kt":    classLangSeparators,
	"scala": classLangSeparators,
	"cpp":   cppSeparators,
	"c":     cppSeparators,
	"h":     cppSeparators,
	"hpp":   cppSeparators,
	"php":   phpSeparators,
	"rb":    rubySeparators,
	"go":    goSeparators,
	"rs":    rustSeparators,
	"swift": swiftSeparators,
	"html":  htmlSeparators,
	"md":    markdownSeparators,
	"tex":   latexSeparators,
	"sol":   solSeparators,
}

// splitterFor builds a recursive splitter tuned to the file's language.
// Unrecognized extensions get the splitter's neutral default separators
// rather than any specific language's.
func splitterFor(path string, chunkSize, chunkOverlap int) textsplitter.RecursiveCharacter {
	opts := []textsplitter.Option{
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	}

	ext := strings.TrimPrefix(fileExtension(path), ".")
	if seps, ok := separatorsByExtension[ext]; ok {
		opts = append(opts, textsplitter.WithSeparators(seps))
	}

	return textsplitter.NewRecursiveCharacter(opts...)
}
