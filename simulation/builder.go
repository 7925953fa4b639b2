package simulation

import (
	"log/slog"

	"github.com/rs/xid"
	"github.com/sarchlab/kernelsim/datarecording"
	"github.com/sarchlab/kernelsim/kernel"
	"github.com/sarchlab/kernelsim/monitoring"
	"github.com/sarchlab/kernelsim/sim"
	"github.com/sarchlab/kernelsim/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	kernelBuilder  kernel.Builder
	recording      bool
	tracing        bool
	monitorOn      bool
	monitorPort    int
	outputFileName string
	eventLogger    *slog.Logger
}

// MakeBuilder creates a new builder. By default, nothing is recorded and
// the monitor is off.
func MakeBuilder() Builder {
	return Builder{
		kernelBuilder: kernel.MakeBuilder(),
	}
}

// WithKernelBuilder sets the builder used to create the kernel.
func (b Builder) WithKernelBuilder(kb kernel.Builder) Builder {
	b.kernelBuilder = kb
	return b
}

// WithRecording records threads, dispatches and evictions into a database.
func (b Builder) WithRecording() Builder {
	b.recording = true
	return b
}

// WithTracing also records the thread and page fault tasks. It requires
// recording.
func (b Builder) WithTracing() Builder {
	b.tracing = true
	return b
}

// WithMonitoring starts the web monitor.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithEventLogging logs every event the engine handles at debug level.
func (b Builder) WithEventLogging(logger *slog.Logger) Builder {
	b.eventLogger = logger
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if b.tracing && !b.recording {
		panic("tracing requires recording")
	}

	if !b.recording && b.outputFileName != "" {
		panic("output file cannot be set when recording is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:            xid.New().String(),
		compNameIndex: make(map[string]int),
	}

	kb := b.kernelBuilder

	if b.recording {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "kernelsim_" + s.id
		}

		s.dataRecorder = datarecording.New(outputPath)
		kb = kb.WithDataRecorder(s.dataRecorder)
	}

	s.kernel = kb.Build("Kernel")

	if b.eventLogger != nil {
		s.kernel.Engine().AcceptHook(sim.NewEventLogger(b.eventLogger))
	}

	s.faultTime = tracing.NewTotalTimeTracer(
		s.kernel.Engine(), tracing.KindFilter(kernel.PageFaultTaskKind))
	tracing.CollectTrace(s.kernel, s.faultTime)

	s.faultAvg = tracing.NewAverageTimeTracer(
		s.kernel.Engine(), tracing.KindFilter(kernel.PageFaultTaskKind))
	tracing.CollectTrace(s.kernel, s.faultAvg)

	s.dispatches = tracing.NewStepCountTracer(
		tracing.KindFilter(kernel.ThreadTaskKind))
	tracing.CollectTrace(s.kernel, s.dispatches)

	if b.tracing {
		s.dbTracer = tracing.NewDBTracer(s.kernel.Engine(), s.dataRecorder)
		tracing.CollectTrace(s.kernel, s.dbTracer)
	}

	s.RegisterComponent(s.kernel)

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor().WithPortNumber(b.monitorPort)
		s.monitor.RegisterEngine(s.kernel.Engine())
		s.monitor.RegisterKernel(s.kernel)
	}

	s.RegisterComponent(s.kernel.Pager())

	if s.monitor != nil {
		s.monitorURL = s.monitor.StartServer()
	}

	return s
}
