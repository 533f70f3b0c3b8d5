package launcher

import (
	"bufio"
	"io"
	"strings"

	"github.com/grovetools/dock/errors"
	"github.com/sirupsen/logrus"
)

const (
	localURLMarker   = "Local URL"
	networkURLMarker = "Network URL"

	maxLineSize = 1024 * 1024
)

// Detector finds the address a framework app announces on its output.
// It blocks until it has an answer or the stream ends; bounding the wait is
// the caller's job.
type Detector interface {
	DetectAddress(r io.Reader) (string, error)
}

// LocalURLDetector reads lines until one contains "Local URL" and returns
// that line's last field. "Network URL" lines are logged and never used.
type LocalURLDetector struct {
	// Framework names the framework in the stream-closed error message.
	Framework string
	Logger    *logrus.Entry
}

// DetectAddress stops reading as soon as the marker line is found.
func (d *LocalURLDetector) DetectAddress(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.Contains(line, localURLMarker):
			d.debug(line)
			return lastField(line), nil
		case strings.Contains(line, networkURLMarker):
			d.debug(line)
		}
	}

	if err := scanner.Err(); err != nil {
		d.logger().WithError(err).Debug("Output stream read failed")
	}

	return "", errors.StreamClosedWithoutAddress(d.Framework)
}

func (d *LocalURLDetector) debug(line string) {
	d.logger().WithField("line", strings.TrimSpace(line)).Debug("Framework announced address")
}

func (d *LocalURLDetector) logger() *logrus.Entry {
	if d.Logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return d.Logger
}

// lastField never sees an empty line: the marker itself has fields.
func lastField(line string) string {
	fields := strings.Fields(line)
	return fields[len(fields)-1]
}
