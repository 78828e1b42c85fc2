package tracker

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/url"
	"time"

	"github.com/WendelHime/metatorrent/internal/shared/models"
)

const (
	protocolID    = 0x41727101980
	actionConnect = 0
	actionScrape  = 2
	actionError   = 3

	defaultUDPTimeout = 15 * time.Second
)

var ErrUnexpectedResponse = errors.New("unexpected tracker response")

type UDPGetter struct{}

func NewUDPGetter() StatsGetter {
	return UDPGetter{}
}

func (u UDPGetter) GetStats(ctx context.Context, announce string, infoHash models.Hash) (Stats, error) {
	tracker, err := url.Parse(announce)
	if err != nil {
		return Stats{}, err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "udp", tracker.Host)
	if err != nil {
		return Stats{}, err
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultUDPTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return Stats{}, err
	}

	transactionID := rand.Uint32()
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:], protocolID)     // connection_id
	binary.BigEndian.PutUint32(buf[8:], actionConnect)  // action
	binary.BigEndian.PutUint32(buf[12:], transactionID) // transaction_id
	resp, err := roundTrip(conn, buf, transactionID, 16)
	if err != nil {
		return Stats{}, err
	}
	connectionID := binary.BigEndian.Uint64(resp[8:16])

	buf = make([]byte, 36)
	binary.BigEndian.PutUint64(buf[0:8], connectionID)
	binary.BigEndian.PutUint32(buf[8:12], actionScrape)
	binary.BigEndian.PutUint32(buf[12:16], transactionID)
	copy(buf[16:36], infoHash)
	resp, err = roundTrip(conn, buf, transactionID, 20)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		Seeders:   int64(binary.BigEndian.Uint32(resp[8:12])),
		Completed: int64(binary.BigEndian.Uint32(resp[12:16])),
		Leechers:  int64(binary.BigEndian.Uint32(resp[16:20])),
	}, nil
}

// roundTrip sends req and reads one datagram of at least size bytes whose
// transaction id matches.
func roundTrip(conn net.Conn, req []byte, transactionID uint32, size int) ([]byte, error) {
	if _, err := conn.Write(req); err != nil {
		return nil, err
	}
	resp := make([]byte, 1024)
	n, err := conn.Read(resp)
	if err != nil {
		return nil, err
	}
	resp = resp[:n]
	if n < 8 || binary.BigEndian.Uint32(resp[4:8]) != transactionID {
		return nil, ErrUnexpectedResponse
	}
	action := binary.BigEndian.Uint32(resp[:4])
	if action == actionError {
		return nil, fmt.Errorf("tracker failure: %s", resp[8:])
	}
	if action != binary.BigEndian.Uint32(req[8:12]) || n < size {
		return nil, ErrUnexpectedResponse
	}
	return resp, nil
}
