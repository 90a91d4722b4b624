package compute

import (
	gocontext "context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	librato "github.com/mihasya/go-metrics-librato"
	"github.com/pborman/uuid"
	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/travis-ci/compute/backend"
	"github.com/travis-ci/compute/config"
	"github.com/travis-ci/compute/context"
	computemetrics "github.com/travis-ci/compute/metrics"
)

// CLI is the top level of execution for the whole shebang
type CLI struct {
	c      *cli.Context
	ctx    gocontext.Context
	logger *logrus.Entry

	Config   *config.Config
	Provider backend.Provider
}

// NewCLI creates a new *CLI from a *cli.Context
func NewCLI(c *cli.Context) *CLI {
	return &CLI{c: c}
}

// Setup pulls config from flags and environment, wires up logging, sentry,
// and metrics, and builds the provider out of the registry.
func (i *CLI) Setup() error {
	i.Config = config.FromCLIContext(i.c)

	if i.Config.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx := gocontext.TODO()
	ctx = context.FromUUID(ctx, uuid.NewRandom().String())
	ctx = context.FromComponent(ctx, "cli")
	ctx = context.FromProviderName(ctx, i.Config.ProviderName)
	i.ctx = ctx
	i.logger = context.LoggerFromContext(ctx)

	i.setupSentry()
	i.setupMetrics()

	provider, err := backend.NewBackendProvider(
		i.Config.ProviderName,
		config.ProviderConfigFromEnviron(i.Config.ProviderName))
	if err != nil {
		return err
	}

	i.Provider = provider
	return nil
}

func (i *CLI) setupSentry() {
	if i.Config.SentryDSN == "" {
		return
	}

	levels := []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
	}

	if i.Config.SentryHookErrors {
		levels = append(levels, logrus.ErrorLevel)
	}

	sentryHook, err := NewSentryHook(i.Config.SentryDSN, levels)
	if err != nil {
		i.logger.WithField("err", err).Error("couldn't create sentry hook")
		return
	}

	logrus.AddHook(sentryHook)
}

func (i *CLI) setupMetrics() {
	go computemetrics.ReportMemstatsMetrics()

	if i.Config.LibratoEmail != "" && i.Config.LibratoToken != "" && i.Config.LibratoSource != "" {
		i.logger.Info("starting librato metrics reporter")

		go librato.Librato(metrics.DefaultRegistry, time.Minute,
			i.Config.LibratoEmail, i.Config.LibratoToken, i.Config.LibratoSource,
			[]float64{0.50, 0.75, 0.90, 0.95, 0.99, 0.999, 1.0}, time.Millisecond)
	} else if !i.Config.SilenceMetrics {
		go metrics.Log(metrics.DefaultRegistry, time.Minute,
			log.New(os.Stderr, "metrics: ", log.Lmicroseconds))
	}
}

// ListNodes prints every server the provider knows about, deployed entries
// before pending-deploy entries.
func (i *CLI) ListNodes() error {
	nodes, err := i.Provider.ListNodes(i.ctx)
	if err != nil {
		return err
	}

	for _, node := range nodes {
		fmt.Printf("%s %s state=%s private_ip=%s%s%s\n",
			node.ID, node.Name, node.State, node.PrivateIP,
			formatMemory(node.Extra["memoryMb"]),
			formatDeployedTime(node.Extra["deployedTime"]))
	}

	return nil
}

// ListImages prints the provider's base OS images.
func (i *CLI) ListImages() error {
	images, err := i.Provider.ListImages(i.ctx)
	if err != nil {
		return err
	}

	for _, image := range images {
		fmt.Printf("%s %s os=%s%s\n",
			image.ID, image.Name, image.Extra["OS_displayName"],
			formatMemory(image.Extra["memory"]))
	}

	return nil
}

// ListLocations prints the provider's data center locations.
func (i *CLI) ListLocations() error {
	locations, err := i.Provider.ListLocations(i.ctx)
	if err != nil {
		return err
	}

	for _, location := range locations {
		fmt.Printf("%s %s (%s)\n", location.ID, location.Name, location.Country)
	}

	return nil
}

// ListNetworks prints the provider's virtual networks, for providers that
// have any notion of them.
func (i *CLI) ListNetworks() error {
	lister, ok := i.Provider.(backend.NetworkLister)
	if !ok {
		return cli.NewExitError(fmt.Sprintf("provider %s can't list networks", i.Config.ProviderName), 1)
	}

	networks, err := lister.ListNetworks(i.ctx)
	if err != nil {
		return err
	}

	for _, network := range networks {
		locationID := ""
		if network.Location != nil {
			locationID = network.Location.ID
		}
		fmt.Printf("%s %s location=%s private=%v multicast=%v\n",
			network.ID, network.Name, locationID, network.PrivateNet, network.Multicast)
	}

	return nil
}

// CreateNode deploys a server out of the flags on the create command.
func (i *CLI) CreateNode() error {
	node, err := i.Provider.CreateNode(i.ctx, &backend.CreateNodeRequest{
		Name:        i.c.String("name"),
		Description: i.c.String("description"),
		Image:       &backend.Image{ID: i.c.String("image-id")},
		Network:     &backend.Network{ID: i.c.String("network-id")},
		Credential:  &backend.PasswordCredential{Password: i.c.String("admin-password")},
		Started:     i.c.Bool("started"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s %s state=%s\n", node.ID, node.Name, node.State)
	return nil
}

// NodeAction runs one of the one-shot lifecycle verbs against the node id
// given as the command's argument, exiting nonzero when the provider
// reports a logical failure.
func (i *CLI) NodeAction(action string) error {
	nodeID := i.c.Args().First()
	if nodeID == "" {
		return cli.NewExitError("expected a node id argument", 1)
	}

	var (
		ok  bool
		err error
	)

	switch action {
	case "reboot":
		ok, err = i.Provider.RebootNode(i.ctx, nodeID)
	case "destroy":
		ok, err = i.Provider.DestroyNode(i.ctx, nodeID)
	default:
		pm, isPM := i.Provider.(backend.NodePowerManager)
		if !isPM {
			return cli.NewExitError(fmt.Sprintf("provider %s can't %s nodes", i.Config.ProviderName, action), 1)
		}
		switch action {
		case "start":
			ok, err = pm.StartNode(i.ctx, nodeID)
		case "shutdown":
			ok, err = pm.ShutdownNode(i.ctx, nodeID)
		case "poweroff":
			ok, err = pm.PowerOffNode(i.ctx, nodeID)
		}
	}

	if err != nil {
		return err
	}
	if !ok {
		return cli.NewExitError(fmt.Sprintf("provider reported %s failure for %s", action, nodeID), 1)
	}

	fmt.Printf("%s %s requested\n", nodeID, action)
	return nil
}

func formatMemory(mb string) string {
	t, err := humanize.ParseBytes(mb + "MB")
	if err != nil {
		return ""
	}
	return " memory=" + humanize.IBytes(t)
}

func formatDeployedTime(value string) string {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return ""
	}
	return " deployed " + humanize.Time(t)
}
