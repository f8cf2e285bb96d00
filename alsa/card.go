package alsa

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gen2brain/audiodev"
)

const (
	procRoot = "/proc/asound"
	devRoot  = "/dev/snd"
)

// SoundCardDevice represents a single PCM stream of a sound card.
type SoundCardDevice struct {
	ID          int
	Description string
	IsPlayback  bool // True for playback, false for capture
}

// Flow returns the endpoint flow of the stream.
func (d SoundCardDevice) Flow() audiodev.Flow {
	if d.IsPlayback {
		return audiodev.Playback
	}

	return audiodev.Recording
}

// String returns a human-readable representation of the SoundCardDevice.
func (d SoundCardDevice) String() string {
	return fmt.Sprintf("  Device %d: %s [%s]", d.ID, d.Description, d.Flow())
}

// SoundCard represents an enumerated sound card with its PCM streams.
type SoundCard struct {
	Index       int
	ID          string // Short id, e.g. "PCH".
	Driver      string
	Description string
	Devices     []SoundCardDevice
}

// String returns a human-readable representation of the SoundCard.
func (c SoundCard) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Card %d: %s (%s)\n", c.Index, c.ID, c.Description))
	for _, dev := range c.Devices {
		sb.WriteString(dev.String() + "\n")
	}

	return sb.String()
}

var (
	// Matches lines like " 0 [PCH            ]: HDA-Intel - HDA Intel PCH".
	cardRegex = regexp.MustCompile(`^\s*(\d+)\s+\[\s*([^]]*?)\s*\]:\s*(.*)`)
	// Matches lines like "00-03: HDMI 0 : HDMI 0 : playback 1".
	pcmRegex = regexp.MustCompile(`^(\d+)-(\d+): (.*)$`)
)

// EnumerateCards reads the cards and PCM streams from the given procfs directory, "/proc/asound" when empty.
func EnumerateCards(root string) ([]SoundCard, error) {
	if root == "" {
		root = procRoot
	}

	cf, err := os.Open(filepath.Join(root, "cards"))
	if err != nil {
		return nil, fmt.Errorf("could not read cards: %w", err)
	}
	defer cf.Close()

	cards, err := ParseCards(cf)
	if err != nil {
		return nil, err
	}

	pf, err := os.Open(filepath.Join(root, "pcm"))
	if err != nil {
		if os.IsNotExist(err) {
			return cards, nil
		}

		return nil, fmt.Errorf("could not read pcm: %w", err)
	}
	defer pf.Close()

	if err := ParsePCM(pf, cards); err != nil {
		return nil, err
	}

	return cards, nil
}

// ParseCards parses the contents of /proc/asound/cards. Cards are returned sorted by index.
func ParseCards(r io.Reader) ([]SoundCard, error) {
	var cards []SoundCard

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		matches := cardRegex.FindStringSubmatch(scanner.Text())
		if len(matches) != 4 {
			continue
		}

		index, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		card := SoundCard{Index: index, ID: matches[2], Description: strings.TrimSpace(matches[3])}
		if driver, desc, ok := strings.Cut(card.Description, " - "); ok {
			card.Driver = strings.TrimSpace(driver)
			card.Description = strings.TrimSpace(desc)
		}

		cards = append(cards, card)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not parse cards: %w", err)
	}

	sort.Slice(cards, func(i, j int) bool { return cards[i].Index < cards[j].Index })

	return cards, nil
}

// ParsePCM parses the contents of /proc/asound/pcm and attaches the streams to cards.
// A PCM device with both directions yields one playback and one capture stream.
func ParsePCM(r io.Reader, cards []SoundCard) error {
	byIndex := make(map[int]*SoundCard, len(cards))
	for i := range cards {
		byIndex[cards[i].Index] = &cards[i]
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		matches := pcmRegex.FindStringSubmatch(scanner.Text())
		if len(matches) != 4 {
			continue
		}

		cardIndex, _ := strconv.Atoi(matches[1])
		devID, _ := strconv.Atoi(matches[2])

		card, ok := byIndex[cardIndex]
		if !ok {
			continue
		}

		fields := strings.Split(matches[3], " : ")
		description := strings.TrimSpace(fields[0])

		for _, field := range fields[1:] {
			field = strings.TrimSpace(field)
			switch {
			case strings.HasPrefix(field, "playback "):
				card.Devices = append(card.Devices, SoundCardDevice{ID: devID, Description: description, IsPlayback: true})
			case strings.HasPrefix(field, "capture "):
				card.Devices = append(card.Devices, SoundCardDevice{ID: devID, Description: description})
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("could not parse pcm: %w", err)
	}

	return nil
}

// PCMName returns the hardware PCM name of a stream, e.g. "hw:CARD=PCH,DEV=0".
func PCMName(cardID string, device int) string {
	return fmt.Sprintf("hw:CARD=%s,DEV=%d", cardID, device)
}

// EndpointID returns the endpoint id of a stream: its PCM name followed by "/p" or "/c".
func EndpointID(cardID string, device int, flow audiodev.Flow) string {
	return PCMName(cardID, device) + flowSuffix(flow)
}

// ParseEndpointID splits an endpoint id into card id, device number and flow.
func ParseEndpointID(id string) (cardID string, device int, flow audiodev.Flow, err error) {
	pcm, dir, ok := strings.Cut(id, "/")
	if !ok {
		return "", 0, 0, fmt.Errorf("invalid endpoint id %q", id)
	}

	switch dir {
	case "p":
		flow = audiodev.Playback
	case "c":
		flow = audiodev.Recording
	default:
		return "", 0, 0, fmt.Errorf("invalid endpoint id %q: unknown direction %q", id, dir)
	}

	if _, err := fmt.Sscanf(strings.Replace(pcm, ",DEV=", " ", 1), "hw:CARD=%s %d", &cardID, &device); err != nil {
		return "", 0, 0, fmt.Errorf("invalid endpoint id %q: %w", id, err)
	}

	return cardID, device, flow, nil
}

func flowSuffix(flow audiodev.Flow) string {
	if flow == audiodev.Recording {
		return "/c"
	}

	return "/p"
}
