package notifier

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/gdg-garage/cafe-das-mulheres/internal/form"
	"github.com/gdg-garage/cafe-das-mulheres/internal/models"
	"github.com/sirupsen/logrus"
)

type Notifier interface {
	NotifyRegistration(payload form.Payload, lot models.Lot) error
}

type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordNotifier(session *discordgo.Session, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

// NewDiscordSession opens a bot session for token. The caller closes it.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("discord bot token is empty")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	if err := session.Open(); err != nil {
		return nil, err
	}
	return session, nil
}

func (n *DiscordNotifier) NotifyRegistration(payload form.Payload, lot models.Lot) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	_, err := n.session.ChannelMessageSend(n.channelID, registrationMessage(payload, lot))
	if err != nil {
		logrus.WithError(err).Error("Failed to send discord message")
		return err
	}

	return nil
}

func registrationMessage(payload form.Payload, lot models.Lot) string {
	lotName := lot.Name
	if lotName == "" {
		lotName = payload.LotID
	}

	return fmt.Sprintf("☕ **Nova inscrição**\n**Nome:** %s\n**Telefone:** %s\n**Lote:** %s (R$ %.2f)\n**Convites:** %d",
		payload.Name,
		maskPhone(payload.Phone),
		lotName,
		lot.Price,
		payload.Quantity,
	)
}

// maskPhone keeps the last four digits only.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return "..." + phone[len(phone)-4:]
}
