package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/clipfetch/clipfetch/internal/domain"
	"github.com/clipfetch/clipfetch/internal/linkparse"
)

// rpc is the slice of the MTProto API the fetcher actually calls.
type rpc interface {
	ContactsResolveUsername(ctx context.Context, request *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error)
	ChannelsGetChannels(ctx context.Context, id []tg.InputChannelClass) (tg.MessagesChatsClass, error)
	ChannelsGetMessages(ctx context.Context, request *tg.ChannelsGetMessagesRequest) (tg.MessagesMessagesClass, error)
}

func fetchMessage(ctx context.Context, api rpc, dl downloadFunc, ref linkparse.TelegramRef, scratchRoot string) (*Result, error) {
	channel, err := resolveChannel(ctx, api, ref)
	if err != nil {
		return nil, err
	}

	msg, err := getMessage(ctx, api, channel, ref.MessageID)
	if err != nil {
		return nil, err
	}

	result := &Result{Caption: trimCaption(msg.Message)}

	media, ok := msg.GetMedia()
	if !ok {
		return result, nil
	}
	loc, kind, name := mediaLocation(media)
	if loc == nil {
		return result, nil
	}

	dir, err := makeScratchDir(scratchRoot)
	if err != nil {
		return nil, domain.NewResolveError(domain.PlatformTelegram, "create scratch dir", err)
	}

	path := filepath.Join(dir, name)
	if err := dl(ctx, loc, path); err != nil {
		os.RemoveAll(dir)
		return nil, domain.NewResolveError(domain.PlatformTelegram, "download media",
			fmt.Errorf("%w: %v", domain.ErrUpstreamTransient, err))
	}

	result.Kind = kind
	result.FilePath = path
	result.FileName = name
	result.scratchDir = dir
	return result, nil
}

// resolveChannel turns the link reference into an input channel with
// its access hash filled in.
func resolveChannel(ctx context.Context, api rpc, ref linkparse.TelegramRef) (*tg.InputChannel, error) {
	if ref.Kind == linkparse.TelegramKindUsername {
		resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
			Username: ref.Username,
		})
		if err != nil {
			return nil, classifyRPCError("resolve username", err)
		}
		for _, chat := range resolved.Chats {
			if ch, ok := chat.(*tg.Channel); ok {
				return &tg.InputChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}, nil
			}
		}
		return nil, domain.NewResolveError(domain.PlatformTelegram, "resolve username",
			fmt.Errorf("%w: %q did not resolve to a channel", domain.ErrEntityNotResolvable, ref.Username))
	}

	chats, err := api.ChannelsGetChannels(ctx, []tg.InputChannelClass{
		&tg.InputChannel{ChannelID: ref.ChannelID},
	})
	if err != nil {
		return nil, classifyRPCError("resolve channel", err)
	}
	for _, chat := range chats.GetChats() {
		if ch, ok := chat.(*tg.Channel); ok && ch.ID == ref.ChannelID {
			return &tg.InputChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}, nil
		}
	}
	return nil, domain.NewResolveError(domain.PlatformTelegram, "resolve channel",
		fmt.Errorf("%w: channel %d not returned", domain.ErrEntityNotResolvable, ref.ChannelID))
}

func getMessage(ctx context.Context, api rpc, channel *tg.InputChannel, id int) (*tg.Message, error) {
	res, err := api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
		Channel: channel,
		ID:      []tg.InputMessageClass{&tg.InputMessageID{ID: id}},
	})
	if err != nil {
		return nil, classifyRPCError("get message", err)
	}

	modified, ok := res.AsModified()
	if !ok {
		return nil, domain.NewResolveError(domain.PlatformTelegram, "get message",
			fmt.Errorf("%w: unexpected not-modified response", domain.ErrUpstreamMalformed))
	}
	for _, m := range modified.GetMessages() {
		if msg, ok := m.(*tg.Message); ok && msg.ID == id {
			return msg, nil
		}
	}
	return nil, domain.NewResolveError(domain.PlatformTelegram, "get message",
		fmt.Errorf("%w: id %d", domain.ErrMessageNotFound, id))
}

// mediaLocation maps message media onto a download location, its kind,
// and the file name it should land under. Returns a nil location for
// media with nothing to download (polls, contacts, webpage previews).
func mediaLocation(media tg.MessageMediaClass) (tg.InputFileLocationClass, domain.MediaKind, string) {
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		photo, ok := m.GetPhoto()
		if !ok {
			return nil, "", ""
		}
		p, ok := photo.(*tg.Photo)
		if !ok {
			return nil, "", ""
		}
		thumb := largestPhotoSize(p.Sizes)
		if thumb == "" {
			return nil, "", ""
		}
		return &tg.InputPhotoFileLocation{
			ID:            p.ID,
			AccessHash:    p.AccessHash,
			FileReference: p.FileReference,
			ThumbSize:     thumb,
		}, domain.MediaKindPhoto, "photo.jpg"
	case *tg.MessageMediaDocument:
		doc, ok := m.GetDocument()
		if !ok {
			return nil, "", ""
		}
		d, ok := doc.(*tg.Document)
		if !ok {
			return nil, "", ""
		}
		return &tg.InputDocumentFileLocation{
			ID:            d.ID,
			AccessHash:    d.AccessHash,
			FileReference: d.FileReference,
		}, documentKind(d), documentFileName(d)
	default:
		return nil, "", ""
	}
}

// documentKind classifies a document the way message links are sent
// back out: video wins over the animated flag (a GIF clip carries
// both attributes), voice notes before plain audio.
func documentKind(d *tg.Document) domain.MediaKind {
	var video, animated bool
	var audio *tg.DocumentAttributeAudio
	for _, attr := range d.Attributes {
		switch a := attr.(type) {
		case *tg.DocumentAttributeVideo:
			video = true
		case *tg.DocumentAttributeAnimated:
			animated = true
		case *tg.DocumentAttributeAudio:
			audio = a
		}
	}
	switch {
	case video:
		return domain.MediaKindVideo
	case animated:
		return domain.MediaKindAnimation
	case audio != nil && audio.Voice:
		return domain.MediaKindVoice
	case audio != nil:
		return domain.MediaKindAudio
	default:
		return domain.MediaKindDocument
	}
}

func documentFileName(d *tg.Document) string {
	for _, attr := range d.Attributes {
		if fn, ok := attr.(*tg.DocumentAttributeFilename); ok && fn.FileName != "" {
			return fn.FileName
		}
	}
	return "media" + extensionForMime(d.MimeType)
}

func extensionForMime(mimeType string) string {
	switch mimeType {
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "audio/ogg":
		return ".ogg"
	case "audio/mpeg":
		return ".mp3"
	default:
		return ".bin"
	}
}

// largestPhotoSize picks the thumb type with the biggest pixel area.
func largestPhotoSize(sizes []tg.PhotoSizeClass) string {
	var best string
	var bestArea int
	for _, s := range sizes {
		switch sz := s.(type) {
		case *tg.PhotoSize:
			if area := sz.W * sz.H; area > bestArea {
				best, bestArea = sz.Type, area
			}
		case *tg.PhotoSizeProgressive:
			if area := sz.W * sz.H; area > bestArea {
				best, bestArea = sz.Type, area
			}
		}
	}
	return best
}

func makeScratchDir(root string) (string, error) {
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, "tg-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// classifyRPCError maps MTProto error codes onto the shared taxonomy.
func classifyRPCError(op string, err error) error {
	var kind error
	switch {
	case tgerr.Is(err, "CHANNEL_PRIVATE", "CHAT_ADMIN_REQUIRED"):
		kind = domain.ErrAccessDenied
	case tgerr.Is(err, "USERNAME_INVALID", "USERNAME_NOT_OCCUPIED", "CHANNEL_INVALID", "PEER_ID_INVALID"):
		kind = domain.ErrEntityNotResolvable
	case tgerr.Is(err, "MSG_ID_INVALID"):
		kind = domain.ErrMessageNotFound
	default:
		kind = domain.ErrUpstreamTransient
	}
	return domain.NewResolveError(domain.PlatformTelegram, op, fmt.Errorf("%w: %v", kind, err))
}
