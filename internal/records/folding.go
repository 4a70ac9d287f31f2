package records

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spotlight-pulseline/pulsift/internal/sifting"
)

// FoldingHeader is the first line of a folding list.
const FoldingHeader = "# Period(sec)   Pdot(s/s)   DM(pc/cc)   Fil_File_Path"

// FoldingSource is the final candidate list of one filterbank.
type FoldingSource struct {
	FilPath    string
	Candidates []sifting.Candidate
}

// WriteFoldingList writes the header followed by every candidate of every
// source, tagged with its filterbank path. Each source is written weakest
// first, the reverse of its SNR-ranked list. It returns the row count.
func WriteFoldingList(w io.Writer, sources []FoldingSource) (int, error) {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, FoldingHeader)
	rows := 0
	for _, src := range sources {
		for i := len(src.Candidates) - 1; i >= 0; i-- {
			c := src.Candidates[i]
			fmt.Fprintf(bw, "%.10f %.6e %.2f %s\n", c.Period, c.Pdot, c.DM, src.FilPath)
			rows++
		}
	}
	return rows, bw.Flush()
}
