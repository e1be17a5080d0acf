package dto

import (
	"ChatSync/internal/model"

	"github.com/jinzhu/copier"
)

// ToModel MessageDTO -> model.Message
func (d *MessageDTO) ToModel() model.Message {
	var m model.Message
	_ = copier.Copy(&m, d)
	m.Sender = model.Sender{ID: d.Sender.ID, DisplayName: d.Sender.DisplayName, Role: d.Sender.Role}
	m.Type = model.MessageType(d.Type)
	if m.Type == "" {
		m.Type = model.MessageTypeText
	}
	m.Status = model.MessageStatus(d.Status)
	if m.Status == "" {
		m.Status = model.StatusSent
	}
	m.ReplyTo = nil
	if d.ReplyTo != nil {
		m.ReplyTo = &model.ReplyPreview{MessageID: d.ReplyTo.MessageID, SenderName: d.ReplyTo.SenderName, Content: d.ReplyTo.Content}
	}
	if len(d.ReadByUserIDs) > 0 {
		m.ReadByUserIDs = append([]int64(nil), d.ReadByUserIDs...)
	}
	return m
}

// FromMessage model.Message -> MessageDTO
func FromMessage(m model.Message) MessageDTO {
	var d MessageDTO
	_ = copier.Copy(&d, &m)
	d.Sender = SenderDTO{ID: m.Sender.ID, DisplayName: m.Sender.DisplayName, Role: m.Sender.Role}
	d.Type = string(m.Type)
	d.Status = string(m.Status)
	d.ReplyTo = nil
	if m.ReplyTo != nil {
		d.ReplyTo = &ReplyPreviewDTO{MessageID: m.ReplyTo.MessageID, SenderName: m.ReplyTo.SenderName, Content: m.ReplyTo.Content}
	}
	return d
}

// ToModel ParticipantDTO -> model.Participant
func (d *ParticipantDTO) ToModel() model.Participant {
	var p model.Participant
	_ = copier.Copy(&p, d)
	return p
}

// ToModel ConversationDTO -> model.Conversation
func (d *ConversationDTO) ToModel() model.Conversation {
	var c model.Conversation
	_ = copier.Copy(&c, d)
	c.Participants = make([]model.Participant, 0, len(d.Participants))
	for i := range d.Participants {
		c.Participants = append(c.Participants, d.Participants[i].ToModel())
	}
	if c.UnreadCount < 0 {
		c.UnreadCount = 0
	}
	return c
}
