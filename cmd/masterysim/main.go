// Command masterysim replays a win/loss string through the ranking state
// machine and prints each step. Useful for eyeballing ladder tuning:
//
//	masterysim WWWWWLLW
//	masterysim -lang ru WWWWW
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/playforge/tabletop-server/internal/mastery"
)

func main() {
	lang := flag.String("lang", "en", "rank name language (en or ru)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: masterysim [-lang en|ru] <sequence of W and L>")
		os.Exit(2)
	}
	seq := strings.ToUpper(strings.TrimSpace(flag.Arg(0)))

	rank := mastery.NewRank()
	printStep(0, "start", rank, *lang)
	for i, c := range seq {
		var won bool
		switch c {
		case 'W':
			won = true
		case 'L':
			won = false
		default:
			log.Fatalf("position %d: expected W or L, got %q", i+1, string(c))
		}
		rank = mastery.Advance(rank, won)
		label := "loss"
		if won {
			label = "win"
		}
		printStep(i+1, label, rank, *lang)
	}
}

func printStep(step int, label string, r mastery.Rank, lang string) {
	display, err := mastery.Display(r, lang)
	if err != nil {
		log.Fatalf("display: %v", err)
	}
	fmt.Printf("%3d %-5s level=%d sub=%d frag=%d  %s\n",
		step, label, r.Level, r.SubRank, r.Fragments, display)
}
