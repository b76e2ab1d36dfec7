package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JianJiangKCL/HooRii/internal/device"
	"github.com/JianJiangKCL/HooRii/internal/model"
)

var (
	deviceName string
	deviceType string
	deviceRoom string
)

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesSetCmd)
	devicesCmd.AddCommand(devicesStateCmd)
	devicesCmd.AddCommand(devicesRemoveCmd)
	devicesSetCmd.Flags().StringVar(&deviceName, "name", "", "Human-readable device name")
	devicesSetCmd.Flags().StringVar(&deviceType, "type", "", "Device type id from the catalog (required)")
	devicesSetCmd.Flags().StringVar(&deviceRoom, "room", "", "Room the device is in")
	devicesSetCmd.MarkFlagRequired("type")
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Device instance management",
	Long:  "Commands for registering devices and inspecting their state.",
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered devices with current state",
	RunE:  runDevicesList,
}

var devicesSetCmd = &cobra.Command{
	Use:   "set <device-id>",
	Short: "Register or update a device instance",
	Long:  "Creates the device if it does not exist, updates name/type/room if it does.\nThe type must be declared in the catalog.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDevicesSet,
}

var devicesStateCmd = &cobra.Command{
	Use:   "state <device-id> [key=value...]",
	Short: "Show or patch a device's state fields",
	Long:  "With no key=value pairs, prints the device state as JSON.\nWith pairs, merges exactly those fields into the state.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDevicesState,
}

var devicesRemoveCmd = &cobra.Command{
	Use:   "remove <device-id>",
	Short: "Remove a device instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runDevicesRemove,
}

func runDevicesList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	devices, err := a.store.List(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No devices registered. Add one with: hoorii devices set <id> --type <type>")
		return nil
	}
	for _, d := range devices {
		state, _ := json.Marshal(d.State)
		room := d.Room
		if room == "" {
			room = "-"
		}
		fmt.Printf("%-12s %-20s %-16s %-12s %s\n", d.ID, d.Name, d.Type, room, state)
	}
	return nil
}

func runDevicesSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, ok := a.registry.Lookup(deviceType); !ok {
		return fmt.Errorf("unknown device type %q; see: hoorii catalog show", deviceType)
	}

	id := args[0]
	name := deviceName
	if name == "" {
		name = id
	}
	if err := a.store.UpsertDevice(ctx, device.Device{
		ID:    id,
		Name:  name,
		Type:  deviceType,
		Room:  deviceRoom,
		State: model.State{},
	}); err != nil {
		return err
	}
	fmt.Printf("OK: %s (%s)\n", id, deviceType)
	return nil
}

func runDevicesState(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id := args[0]
	if len(args) > 1 {
		fields := make(model.State, len(args)-1)
		for _, pair := range args[1:] {
			key, raw, ok := strings.Cut(pair, "=")
			if !ok {
				return fmt.Errorf("expected key=value, got %q", pair)
			}
			fields[key] = parseStateValue(raw)
		}
		if err := a.store.UpdateState(ctx, id, fields); err != nil {
			return err
		}
	}

	dev, err := a.store.Get(ctx, id)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(dev.State, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runDevicesRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.DeleteDevice(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("OK: removed %s\n", args[0])
	return nil
}

// parseStateValue interprets a command-line state value: bool, number, or
// bare string.
func parseStateValue(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
