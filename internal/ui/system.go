package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/pidash/internal/sysinfo"
)

const systemLabelWidth = 12

// renderSystem renders the telemetry cards.
func (m Model) renderSystem() string {
	sys := m.snapshot.System
	styles := m.theme.Styles()
	if !sys.Completed && sys.Err == nil {
		return styles.MutedText.Render("Waiting for system information...")
	}
	if sys.Err != nil && sys.UpdatedAt.IsZero() {
		return styles.DangerText.Render("System information unavailable: " + errorText(sys.Err))
	}

	avail := m.width - 2
	if avail >= LayoutWideWidth {
		colWidth := avail/2 - 3
		left := lipgloss.JoinVertical(lipgloss.Left,
			m.timeCard(colWidth),
			m.cpuCard(colWidth),
			m.memoryCard(colWidth),
		)
		right := lipgloss.JoinVertical(lipgloss.Left,
			m.deviceCard(colWidth),
			m.storageCard(colWidth),
			m.networkCard(colWidth),
		)
		return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
	}

	width := avail - 2
	return lipgloss.JoinVertical(lipgloss.Left,
		m.timeCard(width),
		m.deviceCard(width),
		m.cpuCard(width),
		m.memoryCard(width),
		m.storageCard(width),
		m.networkCard(width),
	)
}

func (m Model) timeCard(width int) string {
	styles := m.theme.Styles()
	t := m.snapshot.System.Time
	date, clock := sysinfo.FormatLocaltime(t.Localtime)
	lines := []string{
		styles.Text.Bold(true).Render(clock) + "  " + styles.MutedText.Render(date),
		field(styles, "Uptime", systemLabelWidth, styles.Text.Render(sysinfo.FormatUptime(t.Uptime))),
		field(styles, "Service", systemLabelWidth, styles.Text.Render(sysinfo.FormatStartTime(t.StartTime, time.Now()))),
	}
	return card(styles, "Time", strings.Join(lines, "\n"), width)
}

func (m Model) cpuCard(width int) string {
	styles := m.theme.Styles()
	cpu := m.snapshot.System.General.CPU
	load := fmt.Sprintf("%.2f  %.2f  %.2f", cpu.Load1, cpu.Load5, cpu.Load15)
	lines := []string{
		field(styles, "Usage", systemLabelWidth, usageBar(styles, sysinfo.CPUUsage(cpu.Usages), barWidth)),
		field(styles, "Load", systemLabelWidth, styles.Text.Render(load)),
		field(styles, "Temperature", systemLabelWidth, m.tempText(cpu.CPUTemp)),
	}
	return card(styles, "CPU", strings.Join(lines, "\n"), width)
}

func (m Model) tempText(temp *float64) string {
	styles := m.theme.Styles()
	text := sysinfo.FormatCPUTemp(temp)
	switch {
	case temp == nil:
		return styles.FaintText.Render(text)
	case *temp >= 80:
		return styles.DangerText.Render(text)
	case *temp >= 65:
		return styles.WarningText.Render(text)
	}
	return styles.Text.Render(text)
}

func (m Model) memoryCard(width int) string {
	styles := m.theme.Styles()
	mem := m.snapshot.System.General.Memory
	lines := []string{
		field(styles, "Used", systemLabelWidth, usageBar(styles, mem.Percent, barWidth)),
		field(styles, "", systemLabelWidth, styles.Text.Render(
			sysinfo.BytesString(mem.Used())+" / "+sysinfo.BytesString(mem.Total))),
		field(styles, "Free", systemLabelWidth, styles.Text.Render(sysinfo.BytesString(mem.Free))),
	}
	return card(styles, "Memory", strings.Join(lines, "\n"), width)
}

func (m Model) deviceCard(width int) string {
	styles := m.theme.Styles()
	d := m.snapshot.System.General.Device
	value := func(s string) string {
		if s == "" {
			return styles.FaintText.Render(sysinfo.Placeholder)
		}
		return styles.Text.Render(s)
	}
	ips := strings.Join(d.HostIP, ", ")
	lines := []string{
		field(styles, "Hostname", systemLabelWidth, value(d.Hostname)) + "  " + styles.FaintText.Render("c copy"),
		field(styles, "IP address", systemLabelWidth, value(ips)) + "  " + styles.FaintText.Render("y copy"),
		field(styles, "OS", systemLabelWidth, value(strings.TrimSpace(d.Type+" "+d.Release))),
		field(styles, "Distribution", systemLabelWidth, value(d.Distribution)),
		field(styles, "Processor", systemLabelWidth, value(d.Processor)),
	}
	return card(styles, "Device", strings.Join(lines, "\n"), width)
}

func (m Model) storageCard(width int) string {
	styles := m.theme.Styles()
	parts := m.snapshot.System.General.Partitions
	if len(parts) == 0 {
		return card(styles, "Storage", styles.FaintText.Render("No partitions reported"), width)
	}
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		label := truncateMiddle(p.Mount, systemLabelWidth)
		lines = append(lines,
			field(styles, label, systemLabelWidth, usageBar(styles, p.Percent/100, barWidth)+"  "+
				styles.MutedText.Render(sysinfo.MegabytesString(p.Used)+" / "+sysinfo.MegabytesString(p.Total))))
	}
	return card(styles, "Storage", strings.Join(lines, "\n"), width)
}

func (m Model) networkCard(width int) string {
	styles := m.theme.Styles()
	ifaces := m.snapshot.System.General.Interfaces
	if len(ifaces) == 0 {
		return card(styles, "Network", styles.FaintText.Render("No interfaces reported"), width)
	}
	lines := make([]string, 0, len(ifaces)*2)
	for _, iface := range ifaces {
		addr := iface.IPAddr
		if addr == "" {
			addr = sysinfo.Placeholder
		}
		lines = append(lines,
			field(styles, truncate(iface.Name, systemLabelWidth), systemLabelWidth, styles.Text.Render(addr)),
			field(styles, "", systemLabelWidth,
				styles.InfoText.Render("↓ "+sysinfo.BytesString(iface.RX.Bytes))+"  "+
					styles.AccentText.Render("↑ "+sysinfo.BytesString(iface.TX.Bytes))+
					m.faultText(iface)),
		)
	}
	return card(styles, "Network", strings.Join(lines, "\n"), width)
}

func (m Model) faultText(iface sysinfo.Interface) string {
	errs := iface.RX.Error + iface.TX.Error
	dropped := iface.RX.Dropped + iface.TX.Dropped
	if errs == 0 && dropped == 0 {
		return ""
	}
	return "  " + m.theme.Styles().WarningText.Render(fmt.Sprintf("%d err %d drop", errs, dropped))
}
