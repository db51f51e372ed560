package basisu

import (
	"strconv"

	"github.com/ds124wfegd/ktx2converter/internal/entity"
)

// BuildArgs returns the basisu argument list. Arguments are passed to the process
// directly, never through a shell.
func BuildArgs(opts entity.Options, inputPath, outputPath string) []string {
	args := []string{"-ktx2"}
	if opts.GenerateMipmaps {
		args = append(args, "-mipmap")
	}
	if opts.HasQuality() {
		args = append(args, "-q", strconv.Itoa(opts.Quality))
	}
	if opts.FlipY {
		args = append(args, "-y_flip")
	}
	if opts.UseUASTC {
		args = append(args, "-uastc")
	}
	return append(args, inputPath, "-output_file", outputPath)
}
