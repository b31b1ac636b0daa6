// Package fastq holds the read-file operations the pipeline performs itself: finding the
// sequencer's fragment files for a barcode, concatenating them, and counting reads.
package fastq

import (
	"fmt"
	"io"

	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
)

// Count returns the number of records in a (possibly gzip-compressed) FASTQ file
func Count(path string) (int64, error) {
	reader, err := fastx.NewReader(seq.Unlimit, path, fastx.DefaultIDRegexp)
	if err != nil {
		return 0, fmt.Errorf("error creating reader for %s: %w", path, err)
	}
	defer reader.Close()

	var n int64
	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, fmt.Errorf("error reading record %d of %s: %w", n+1, path, err)
		}
		n++
	}
	return n, nil
}
