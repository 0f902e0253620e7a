// build.go implements the image-build step's interaction with the
// container engine: a pre-flight check on the build definition file, the
// build itself via the docker CLI, and post-build tag verification
// through the SDK.
package docker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"

	"github.com/shinji-kodama/cicada/internal/model"
)

// BuildOptions configures an image build.
type BuildOptions struct {
	// File is the build definition file path, relative to the context
	// directory when not absolute. Defaults to "Dockerfile".
	File string

	// Tags is the list of tags applied to the built image.
	Tags []string

	// Context is the build context directory. Defaults to ".".
	Context string
}

// normalize fills in defaults.
func (o *BuildOptions) normalize() {
	if o.File == "" {
		o.File = "Dockerfile"
	}
	if o.Context == "" {
		o.Context = "."
	}
}

// Args returns the docker CLI argument list for the build.
// Exposed for testing.
func (o BuildOptions) Args() []string {
	o.normalize()
	args := []string{"build", "-f", o.File}
	for _, tag := range o.Tags {
		args = append(args, "-t", tag)
	}
	args = append(args, o.Context)
	return args
}

// BuildImage builds a container image by running "docker build" in the
// given project directory. The build definition file is checked for
// existence first, so a missing file fails fast with a clear message
// instead of the builder's own error output.
//
// The combined tool output is returned for step result capture, on
// failure too.
func BuildImage(ctx context.Context, projectDir string, opts BuildOptions) (string, error) {
	opts.normalize()

	// Pre-flight: the build definition file must exist. Resolve it the
	// way the CLI would, relative to the invocation directory.
	filePath := opts.File
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(projectDir, filePath)
	}
	if _, err := os.Stat(filePath); err != nil {
		return "", model.WrapCLIError(
			model.ExitStepFailed,
			fmt.Sprintf("build definition file %s not found", opts.File),
			err,
		)
	}

	cmd := exec.CommandContext(ctx, "docker", opts.Args()...)
	cmd.Dir = projectDir

	output, err := cmd.CombinedOutput()
	text := strings.TrimSpace(string(output))
	if err != nil {
		return text, model.WrapCLIError(
			model.ExitStepFailed,
			fmt.Sprintf("docker build failed: %s", text),
			err,
		)
	}
	return text, nil
}

// VerifyImage confirms that an image with the given tag exists in the
// local image store. Run after a successful build to catch the case
// where the builder exits zero without producing the expected tag.
func VerifyImage(ctx context.Context, cli *Client, tag string) error {
	summaries, err := cli.Inner().ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", tag)),
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerUnavailable,
			fmt.Sprintf("failed to list images matching %q", tag),
			err,
		)
	}
	if len(summaries) == 0 {
		return model.NewCLIError(
			model.ExitStepFailed,
			fmt.Sprintf("image %q not found after build", tag),
		)
	}
	return nil
}
