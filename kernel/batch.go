package kernel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/kernelsim/sched"
)

// DefaultPriority is the priority of batch jobs that do not give one.
const DefaultPriority = 100

// BasePriorityOffset is added to a job priority to form the base priority
// of its thread.
const BasePriorityOffset = 50

// ErrBadBatch is returned for batch files that cannot be parsed.
var ErrBadBatch = errors.New("bad batch file")

// A Job is one program listed in a batch file.
type Job struct {
	Executable string
	Priority   int
}

// A Batch is the content of a batch file: the scheduling algorithm on the
// first line, then one executable per line with an optional priority.
type Batch struct {
	Algorithm sched.Algorithm
	Jobs      []Job
}

// An Opener opens the executable of a job.
type Opener func(name string) (io.ReaderAt, error)

// ParseBatch reads a batch file.
func ParseBatch(r io.Reader) (Batch, error) {
	var b Batch

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if lineNo == 1 {
			alg, err := sched.ParseAlgorithm(line)
			if err != nil {
				return Batch{}, fmt.Errorf("%w: line 1: %w", ErrBadBatch, err)
			}

			b.Algorithm = alg

			continue
		}

		if line == "" {
			continue
		}

		job, err := parseJob(line)
		if err != nil {
			return Batch{}, fmt.Errorf("%w: line %d: %w", ErrBadBatch, lineNo, err)
		}

		b.Jobs = append(b.Jobs, job)
	}

	if err := scanner.Err(); err != nil {
		return Batch{}, fmt.Errorf("%w: %w", ErrBadBatch, err)
	}

	if lineNo == 0 {
		return Batch{}, fmt.Errorf("%w: empty", ErrBadBatch)
	}

	return b, nil
}

func parseJob(line string) (Job, error) {
	fields := strings.Fields(line)

	switch len(fields) {
	case 1:
		return Job{Executable: fields[0], Priority: DefaultPriority}, nil
	case 2:
		priority, err := strconv.Atoi(fields[1])
		if err != nil {
			return Job{}, fmt.Errorf("priority %q: %w", fields[1], err)
		}

		return Job{Executable: fields[0], Priority: priority}, nil
	}

	return Job{}, fmt.Errorf("expecting an executable and a priority, got %q",
		line)
}

// LoadBatch launches every job of a batch, in order. It stops at the first
// job that cannot be opened or loaded.
func (k *Kernel) LoadBatch(b Batch, open Opener) error {
	for _, job := range b.Jobs {
		exe, err := open(job.Executable)
		if err != nil {
			return fmt.Errorf("opening %s: %w", job.Executable, err)
		}

		_, err = k.Launch(job.Executable, exe, job.Priority)
		if err != nil {
			return err
		}
	}

	return nil
}
