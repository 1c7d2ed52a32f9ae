package domain

import "time"

type Message struct {
	Id        MsgId
	Name      MsgName
	Text      MsgText // raw markdown, rendered only when displayed
	ImagePath *FileName
	VideoPath *FileName
	CreatedAt time.Time
}

// Attachments returns the stored file names referenced by the message.
func (m *Message) Attachments() []FileName {
	var names []FileName
	if m.ImagePath != nil {
		names = append(names, *m.ImagePath)
	}
	if m.VideoPath != nil {
		names = append(names, *m.VideoPath)
	}
	return names
}

type MessageCreationData struct {
	Name       MsgName `validate:"required"`
	Text       MsgText `validate:"required"`
	Attachment *StoredAttachment
}

// Paths splits the attachment into the image/video columns of the messages table.
func (d MessageCreationData) Paths() (imagePath, videoPath *FileName) {
	if d.Attachment == nil {
		return nil, nil
	}
	name := d.Attachment.Name
	switch d.Attachment.Kind {
	case MediaImage:
		return &name, nil
	case MediaVideo:
		return nil, &name
	}
	return nil, nil
}
