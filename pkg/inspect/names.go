package inspect

import (
	"slices"
	"strings"

	"github.com/ctlm-ground/ctlm-go/pkg/catalog"
)

// Names completes console input against the names of a catalog. It
// satisfies readline's AutoCompleter.
type Names struct {
	cat *catalog.Catalog

	// Verbs are completed as the first word of a line.
	Verbs []string

	// CommandVerbs complete their arguments from the command definitions;
	// every other verb completes from telemetry.
	CommandVerbs []string
}

// NewNames creates a completer for cat.
func NewNames(cat *catalog.Catalog, verbs, commandVerbs []string) *Names {
	return &Names{cat: cat, Verbs: verbs, CommandVerbs: commandVerbs}
}

// Complete returns the names that can follow words and start with partial
// (case-insensitive). The first word is a verb; the next three are a
// target, a packet and an item.
func (n *Names) Complete(words []string, partial string) []string {
	var candidates []string
	if len(words) == 0 {
		candidates = n.Verbs
	} else {
		set := n.cat.Telemetry.PacketSet
		if slices.Contains(n.CommandVerbs, strings.ToLower(words[0])) {
			set = n.cat.Commands.PacketSet
		}
		candidates = pathNames(set, words[1:])
	}

	up := strings.ToUpper(partial)
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToUpper(c), up) {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out
}

func pathNames(set *catalog.PacketSet, path []string) []string {
	switch len(path) {
	case 0:
		return set.TargetNames()
	case 1:
		pkts, err := set.Packets(path[0])
		if err != nil {
			return nil
		}
		names := make([]string, 0, len(pkts))
		for _, p := range pkts {
			if !p.Hidden {
				names = append(names, p.PacketName())
			}
		}
		return names
	case 2:
		p, err := set.Packet(path[0], path[1])
		if err != nil {
			return nil
		}
		var names []string
		for _, item := range p.SortedItems() {
			if !item.Hidden {
				names = append(names, item.Name)
			}
		}
		return names
	}
	return nil
}

// Do implements readline.AutoCompleter. Candidates are returned as the
// suffix to append to the word under the cursor.
func (n *Names) Do(line []rune, pos int) ([][]rune, int) {
	head := string(line[:pos])
	words := strings.Fields(head)
	partial := ""
	if len(words) > 0 && !strings.HasSuffix(head, " ") {
		partial = words[len(words)-1]
		words = words[:len(words)-1]
	}

	matches := n.Complete(words, partial)
	out := make([][]rune, 0, len(matches))
	for _, m := range matches {
		out = append(out, []rune(m[len(partial):]+" "))
	}
	return out, len([]rune(partial))
}
